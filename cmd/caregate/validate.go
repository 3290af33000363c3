package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caregate/caregate/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}

		fmt.Println("Configuration valid")
		fmt.Printf("  Assistant: %s\n", cfg.Assistant.URL)
		fmt.Printf("  Database:  %s\n", cfg.Database.DSN)
		fmt.Printf("  Payments:  %s\n", cfg.Payment.Provider)
		fmt.Printf("  Metrics:   %v\n", cfg.Metrics.Enabled)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
