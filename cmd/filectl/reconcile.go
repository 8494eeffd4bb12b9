package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/filekeeper/internal/server/reaper"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

func newReconcileCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "List live objects whose file is missing",
		Long: `Check every live metadata row against the object directory and
print the rows whose canonical file is absent. Exits with status 1 when any
are found. Nothing is repaired.`,
		Args: cobra.NoArgs,
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

			rep, err := reaper.NewReconciler(db, rm, st.logger(cmd), nil).Check(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(cmd, rep)
		},
	}
}

func printReport(cmd *cobra.Command, rep reaper.Report) error {
	out := cmd.OutOrStdout()
	for _, m := range rep.Missing {
		fmt.Fprintf(out, "missing %s %s\n", m.ObjectID, m.CanonicalPath)
	}
	fmt.Fprintf(out, "checked=%d skipped=%d missing=%d\n", rep.Checked, rep.Skipped, len(rep.Missing))

	if len(rep.Missing) > 0 {
		return errMissingObjects
	}
	return nil
}
