package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xaubot/internal/config"
	"xaubot/internal/guard"
)

func signCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Print the " + guard.Header + " value for a request body",
		Long: `sign computes the hex HMAC-SHA256 of a body exactly as read from the
file (or stdin), using --secret or $` + config.EnvWebhookSecret + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv(config.EnvWebhookSecret)
			}
			if strings.TrimSpace(secret) == "" {
				return errors.New("no secret: pass --secret or set " + config.EnvWebhookSecret)
			}

			var (
				body []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), guard.Sign(secret, body))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "webhook secret")
	return cmd
}
