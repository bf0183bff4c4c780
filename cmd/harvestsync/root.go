package main

import (
	"github.com/spf13/cobra"
)

var (
	flagStartDate string
	flagEndDate   string
	flagConfig    string
	flagEnvFile   string
)

var rootCmd = &cobra.Command{
	Use:   "harvestsync",
	Short: "Sync harvest data into the reporting database",
	Long: `harvestsync reconciles time-windowed records from external sources into
the local reporting database using upsert (insert-or-update) semantics.

Each run covers an inclusive [start-date, end-date] window. When no window
is given, both bounds default to today. Runs are idempotent: re-syncing the
same window with unchanged source data leaves the database unchanged.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStartDate, "start-date", "", "Start date (YYYY-MM-DD), defaults to today")
	rootCmd.PersistentFlags().StringVar(&flagEndDate, "end-date", "", "End date (YYYY-MM-DD), defaults to today")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default: ./harvestsync.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Path to dotenv file (default: ./.env if present)")
}
