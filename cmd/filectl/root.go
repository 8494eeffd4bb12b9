package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/config"
)

// errMissingObjects makes reconcile exit non-zero without an extra message.
var errMissingObjects = errors.New("objects with missing files found")

type cliState struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:          "filectl",
		Short:        "Maintenance commands for the filekeeper service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&st.configPath, "config", "c", "", "path to JSON config file")
	root.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newMigrateCmd(st),
		newReapCmd(st),
		newReconcileCmd(st),
		newTokenCmd(st),
		newUploadCmd(st),
	)
	return root
}

func (st *cliState) load() (*config.Config, error) {
	return config.LoadConfigFile(st.configPath)
}

func (st *cliState) logger(cmd *cobra.Command) logging.Logger {
	level := slog.LevelWarn
	if st.verbose {
		level = slog.LevelDebug
	}
	return logging.NewJSONLogger(cmd.ErrOrStderr(), level)
}
