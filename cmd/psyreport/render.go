package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/collect"
	"github.com/lvillar/psyreport/filestore"
	"github.com/lvillar/psyreport/render"
	"github.com/lvillar/psyreport/report"
	"github.com/lvillar/psyreport/schema"
)

var renderFlags struct {
	template    string
	reports     []string
	branding    string
	assets      string
	output      string
	preview     bool
	reference   string
	format      string
	orientation string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render filled reports to PDF",
	Long: `Renders one or more filled reports against a template. Several --report
files are rendered concurrently and merged, in order, into one PDF.

Branding images are looked up under --assets, laid out like the server's
upload directory (logos/, signatures/, ...).

Example:
  psyreport render --template intake.json --report ana.json --branding brand.json -o ana.pdf`,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderFlags.template, "template", "t", "", "Template JSON file (required)")
	f.StringArrayVarP(&renderFlags.reports, "report", "r", nil, "Filled report JSON file (repeatable)")
	f.StringVarP(&renderFlags.branding, "branding", "b", "", "Branding JSON file")
	f.StringVar(&renderFlags.assets, "assets", "", "Directory holding branding images (default: storage.upload_dir)")
	f.StringVarP(&renderFlags.output, "output", "o", "report.pdf", "Output PDF file")
	f.BoolVar(&renderFlags.preview, "preview", false, "Stamp the document as a preview")
	f.StringVar(&renderFlags.reference, "reference", "", "Reference code printed as a QR code")
	f.StringVar(&renderFlags.format, "format", "", "Page format, overriding the branding")
	f.StringVar(&renderFlags.orientation, "orientation", "", "Page orientation, overriding the branding")
	renderCmd.MarkFlagRequired("template")
	renderCmd.MarkFlagRequired("report")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var tpl schema.Template
	if err := readJSON(renderFlags.template, &tpl); err != nil {
		return err
	}
	tpl.Normalize()
	if err := schema.Validate(&tpl); err != nil {
		return fmt.Errorf("%s: %w", renderFlags.template, err)
	}

	var brand branding.Config
	if renderFlags.branding != "" {
		if err := readJSON(renderFlags.branding, &brand); err != nil {
			return err
		}
	}

	var opts []psyreport.Option
	if renderFlags.preview {
		opts = append(opts, psyreport.WithPreview())
	}
	if renderFlags.reference != "" {
		opts = append(opts, psyreport.WithReferenceCode(renderFlags.reference))
	}
	if renderFlags.format != "" {
		opts = append(opts, psyreport.WithPageFormat(renderFlags.format))
	}
	if renderFlags.orientation != "" {
		opts = append(opts, psyreport.WithOrientation(renderFlags.orientation))
	}

	reqs := make([]report.Request, len(renderFlags.reports))
	for i, path := range renderFlags.reports {
		var raw collect.RawReport
		if err := readJSON(path, &raw); err != nil {
			return err
		}
		reqs[i] = report.Request{Template: &tpl, Report: raw, Branding: brand, Options: opts}
	}

	resolver, err := assetResolver(renderFlags.assets, cfg.Storage.UploadDir)
	if err != nil {
		return err
	}
	svc := report.NewService(resolver, cfg.Render.MaxConcurrent, cfg.RenderOptions()...)

	out, err := svc.RenderBatch(cmd.Context(), reqs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(renderFlags.output, out, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d reports, %d bytes)\n", renderFlags.output, len(reqs), len(out))
	return nil
}

// assetResolver reads images from dir, or from fallback when dir is empty.
// A missing directory leaves images unresolvable rather than creating it.
func assetResolver(dir, fallback string) (render.AssetResolver, error) {
	if dir == "" {
		dir = fallback
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, nil
	}
	return filestore.NewDisk(dir)
}

var validateCmd = &cobra.Command{
	Use:   "validate <template.json>...",
	Short: "Check template files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			var tpl schema.Template
			err := readJSON(path, &tpl)
			if err == nil {
				tpl.Normalize()
				err = schema.Validate(&tpl)
			}
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, %d sections)\n", path, tpl.Category, len(tpl.Sections))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d templates are invalid", failed, len(args))
		}
		return nil
	},
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
