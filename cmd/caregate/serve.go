package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caregate/caregate/bootstrap"
	"github.com/caregate/caregate/config"
	"github.com/caregate/caregate/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the CareGate API server.

The server will:
  - Load configuration from caregate.yaml (or --config)
  - Or load configuration from CAREGATE_* environment variables
  - Connect to the database and run migrations
  - Serve the patient API and payment webhooks

Environment variables (for Docker deployments):
  CAREGATE_ASSISTANT_URL   - Answer service URL (required)
  CAREGATE_AUTH_JWT_SECRET - Session token signing secret (required)
  CAREGATE_DATABASE_DSN    - Database path (default: caregate.db)
  CAREGATE_SERVER_PORT     - Server port (default: 8080)
  CAREGATE_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  caregate serve
  caregate serve --config /etc/caregate/config.yaml

  # Docker (env vars only):
  CAREGATE_ASSISTANT_URL=http://assistant:3000 caregate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	if !hasConfigFile && !config.HasEnvConfig() {
		fmt.Println("No configuration found.")
		fmt.Println()
		fmt.Printf("Option 1: Create %s\n", cfgFile)
		fmt.Println("Option 2: Set CAREGATE_ASSISTANT_URL and CAREGATE_AUTH_JWT_SECRET")
		fmt.Println()
		fmt.Println("Example (env vars):")
		fmt.Println("  CAREGATE_ASSISTANT_URL=http://assistant:3000 caregate serve")
		return nil
	}

	path := cfgFile
	if !hasConfigFile {
		fmt.Println("Running with environment variables (no config file)")
		path = ""
	}

	web.Version = version

	app, err := bootstrap.New(path)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
