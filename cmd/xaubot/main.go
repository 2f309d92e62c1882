package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xaubot",
		Short: "XAUUSD trading alert relay",
		Long: `xaubot receives XAUUSD alerts from TradingView webhooks, email bridges
and a manual form, and relays them to a Telegram chat.`,
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), signCmd(), examplesCmd(), signalsCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xaubot version %s\n", version)
		},
	}
}
