package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/nebari-dev/refstore/internal/server"

	_ "github.com/nebari-dev/refstore/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

// @title refstore API
// @version 1.0
// @description Versioned template and blueprint storage with reference resolution
// @host localhost:8470
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	port := flag.Int("port", 0, "Port to run the server on (overrides config)")
	flag.Parse()

	if err := server.RunWithSignalHandling(server.Config{Port: *port, Version: Version}); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
