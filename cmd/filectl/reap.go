package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/filekeeper/internal/server/reaper"
)

func newReapCmd(st *cliState) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Remove stale files from the staging directory once",
		Long: `Run a single orphan sweep over the staging directory.

Files older than --max-age (default: the configured reaper max age) are
removed. Canonical objects are never touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-age") {
				maxAge = cfg.ReaperMaxAge
			}

			r := reaper.New(cfg.StagingDir, cfg.ReaperInterval, maxAge, st.logger(cmd), nil)
			stats := r.Sweep(cmd.Context())

			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d removed=%d freed_bytes=%d errors=%d\n",
				stats.Scanned, stats.Removed, stats.FreedBytes, stats.Errors)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "minimum age of a staging file to remove")
	return cmd
}
