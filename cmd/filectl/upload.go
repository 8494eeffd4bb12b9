package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/filekeeper/internal/netx"
	"github.com/dmitrijs2005/filekeeper/internal/server/auth"
)

func newUploadCmd(st *cliState) *cobra.Command {
	var (
		server string
		userID string
		token  string
	)

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file through the HTTP API",
		Long: `Stream a local file to a running server. Without --token a short-lived
token for --user is signed with the configured secret.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				if userID == "" {
					return fmt.Errorf("either --token or --user is required")
				}
				cfg, err := st.load()
				if err != nil {
					return err
				}
				token, err = auth.GenerateToken(userID, []byte(cfg.SecretKey), 5*time.Minute)
				if err != nil {
					return err
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			body, err := netx.UploadFile(cmd.Context(), http.DefaultClient, server, token, filepath.Base(args[0]), f, info.Size())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "base URL of the server")
	cmd.Flags().StringVar(&userID, "user", "", "user id to sign a token for")
	cmd.Flags().StringVar(&token, "token", "", "bearer token to send")
	return cmd
}
