package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/filestore"
	"github.com/lvillar/psyreport/store"
)

var purgeMaxAge time.Duration

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove stale temporary uploads and expired tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		maxAge := purgeMaxAge
		if maxAge <= 0 {
			maxAge = cfg.Storage.TempMaxAge
		}

		files, err := filestore.NewDisk(cfg.Storage.UploadDir)
		if err != nil {
			return err
		}
		n, err := files.PurgeOlderThan(cmd.Context(), branding.CategoryTemp, maxAge)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		tokens, err := st.PurgeTokens(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d temporary files and %d expired tokens\n", n, tokens)
		return nil
	},
}

func init() {
	purgeCmd.Flags().DurationVar(&purgeMaxAge, "max-age", 0, "Remove temporary files older than this (default: storage.temp_max_age)")
}
