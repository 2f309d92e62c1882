package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xaubot/internal/app"
	"xaubot/internal/config"
)

func serveCmd() *cobra.Command {
	var (
		cfgPath  string
		envFiles []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.NewApp(cfgPath, envFiles...)
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				return err
			}

			reason := app.StopSignal
			select {
			case <-ctx.Done():
			case <-a.Done():
				if a.Err() != nil {
					reason = app.StopFatalError
				}
			}

			stopCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
			defer stop()
			_ = a.Stop(stopCtx, reason)
			return a.Err()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (JSON or YAML, optional)")
	cmd.Flags().StringSliceVar(&envFiles, "env-file", config.DefaultEnvFiles, "dotenv files, later files win")
	return cmd
}
