// Package main is the entry point for the forgectl CLI, the operator surface
// for paperforge: submit generation and edit tasks, inspect task progress, and
// dump stored reports.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"paperforge/internal/config"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "forgectl",
	Short: "Operate the paperforge report pipeline",
	Long: `forgectl submits report generation and edit tasks to the paperforge
worker fleet and inspects their results. Reports live in per-thread artifact
files; task bookkeeping lives in Postgres.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env")
		cfg = config.Load()
		var err error
		logger, err = zap.NewDevelopment()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func dialTemporal() (client.Client, error) {
	return client.Dial(client.Options{HostPort: cfg.TemporalAddress})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
