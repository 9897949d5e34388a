// Command psyreport runs the psychological report server and offers the
// report pipeline on the command line.
//
//	psyreport serve --config psyreport.yaml
//	psyreport render --template intake.json --report patient.json -o report.pdf
//	psyreport validate templates/*.json
//	psyreport purge --max-age 24h
//	psyreport init-config psyreport.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lvillar/psyreport/config"
	"github.com/lvillar/psyreport/log"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "psyreport",
	Short: "Psychological report templates, forms and PDF rendering",
	Long: `psyreport stores report templates per psychologist, collects the filled
forms and renders branded PDF reports.

Settings are read from a YAML file, then overridden by PSYREPORT_* and
GEMINI_API_KEY environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "psyreport.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, renderCmd, validateCmd, purgeCmd, initConfigCmd)
}

// loadConfig reads the configuration and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	if cfg.Logging.JSON {
		log.SetJSON()
	}
	return cfg, nil
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Set auth.token_secret before serving.\n", path)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
