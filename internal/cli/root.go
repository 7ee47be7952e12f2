// Package cli defines the attolytics command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "attolytics",
	Short: "Multi-tenant analytics event ingestion gateway",
	Long: `attolytics accepts batches of analytics events over HTTP, validates
them against a per-tenant schema, and inserts the rows into PostgreSQL
atomically per batch.

The schema is fixed for the process lifetime; changing it requires a
restart.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}
