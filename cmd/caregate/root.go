package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "caregate",
	Short: "Patient-facing medical assistant backend with metered usage",
	Long: `CareGate is the backend for a patient-facing medical AI assistant.

It handles accounts, medical profiles, conversations with the answer
service, and metered monthly usage with tier-based allowances.

Quick start:
  caregate serve     # Start the API server
  caregate validate  # Validate configuration

Management:
  caregate accounts  # Manage patient accounts
  caregate usage     # Inspect and reset usage counters
  caregate plans     # Show the tier catalog`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "caregate.yaml", "config file path")
}
