package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "checkout-service",
	Short:        "Subscription checkout service",
	Long:         "Subscription checkout backend (HTTP, gRPC, webhooks, renewal jobs) and a CLI client for it.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
