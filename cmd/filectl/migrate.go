package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

func newMigrateCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.load()
			if err != nil {
				return err
			}

			db, err := repomanager.Open(cmd.Context(), cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			rm, err := repomanager.NewPostgresRepositoryManager(db)
			if err != nil {
				return err
			}
			if err := rm.RunMigrations(cmd.Context(), db); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
