// Command psyreport-mcp is an MCP (Model Context Protocol) server that lets
// AI assistants validate templates, render and merge reports and draft
// report text.
//
// # Installation
//
//	go install github.com/lvillar/psyreport/cmd/psyreport-mcp@latest
//
// # Configuration for an MCP client
//
//	{
//	  "mcpServers": {
//	    "psyreport": {
//	      "command": "psyreport-mcp",
//	      "args": ["--assets", "/srv/psyreport/uploads"]
//	    }
//	  }
//	}
//
// # Available Tools
//
//   - validate_template: Check a report template
//   - render_report: Render a filled report to PDF
//   - merge_reports: Merge rendered reports
//   - page_count: Count the pages of a PDF
//   - generate_section: Draft conclusions, recommendations or a summary
//   - enhance_text: Rewrite a passage
//
// # Available Resources
//
//   - psyreport://section-kinds
//   - psyreport://categories
//   - psyreport://branding
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lvillar/psyreport/assist"
	"github.com/lvillar/psyreport/config"
	"github.com/lvillar/psyreport/filestore"
	"github.com/lvillar/psyreport/log"
	"github.com/lvillar/psyreport/mcp"
	"github.com/lvillar/psyreport/render"
	"github.com/lvillar/psyreport/report"
)

var (
	configPath string
	assetsDir  string
)

var rootCmd = &cobra.Command{
	Use:          "psyreport-mcp",
	Short:        "Serve the report pipeline over MCP on stdio",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "psyreport.yaml", "Configuration file")
	rootCmd.Flags().StringVar(&assetsDir, "assets", "", "Directory holding branding images (default: storage.upload_dir)")
}

func run(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if level, err := cfg.LogLevel(); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := assetsDir
	if dir == "" {
		dir = cfg.Storage.UploadDir
	}
	var resolver render.AssetResolver
	if _, err := os.Stat(dir); err == nil {
		files, err := filestore.NewDisk(dir)
		if err != nil {
			return err
		}
		resolver = files
	}

	ai, err := assist.New(ctx, cfg.AI)
	if err != nil {
		return err
	}

	server := mcp.NewServer()
	mcp.RegisterDefaultTools(server, mcp.Deps{
		Reports: report.NewService(resolver, cfg.Render.MaxConcurrent, cfg.RenderOptions()...),
		AI:      ai,
	})
	mcp.RegisterDefaultResources(server)

	log.Debugf("%s %s: serving on stdio", mcp.Name, mcp.Version)
	return server.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "psyreport-mcp: %v\n", err)
		os.Exit(1)
	}
}
