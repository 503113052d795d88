package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wiremsg",
	Short: "wiremsg conversation messaging server",
	Long: `wiremsg serves a JSON API for conversations, threaded replies,
edit history and notifications, backed by SQLite.

Examples:
  wiremsg serve --config ./config.yaml
  wiremsg migrate
  wiremsg create-user --username root --password secret123 --admin`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createUserCmd)

	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (default ./config.yaml)")
}
