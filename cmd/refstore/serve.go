package main

import (
	"fmt"
	"os"

	"github.com/nebari-dev/refstore/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

// @title refstore API
// @version 1.0
// @description Versioned template and blueprint storage with reference resolution
// @host localhost:8470
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a refstore server (for admins/operators)",
	Long: `Start the refstore API server.

Examples:
  refstore serve                # Run with config.yaml or defaults
  refstore serve --port 8080    # Override port

Environment variables:
  REFSTORE_SERVER_PORT         Server port (default: 8470)
  REFSTORE_SERVER_MODE         development or production
  REFSTORE_DATABASE_DRIVER     Database driver: sqlite, postgres
  REFSTORE_DATABASE_DSN        Database connection string
  REFSTORE_AUTH_JWT_SECRET     Credential signing secret
  REFSTORE_AUDIT_TYPE          Audit transport: memory, valkey
  REFSTORE_RATELIMIT_TYPE      Rate limiter: memory, valkey, none`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := server.Config{
		Port:    servePort,
		Version: Version,
	}

	if err := server.RunWithSignalHandling(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
