// Package cmd implements the scanner command line: the HTTP server and a
// one-shot scan of local or GCS receipt files.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose switches logging to debug level.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Bank Transcript Scanner - extract transactions from bank transfer receipts",
	Long: `Bank Transcript Scanner reads photos, scans and PDFs of ABA and ACLEDA
bank transfer receipts, extracts one transaction per receipt, validates it and
stores the results as an upload batch with per-currency totals.

Example Usage:
  scanner serve                              # Run the HTTP API
  scanner scan receipts/ --format csv        # Scan a directory to CSV on stdout
  scanner scan gs://bucket/2024/ --bank aba  # Scan a GCS prefix as ABA receipts`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml",
		"Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
}
