package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/nebari-dev/refstore/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "refstore",
	Short: "refstore - versioned prompt references for LLM apps",
	Long:  `refstore stores versioned templates and blueprints and resolves references like app/slug@stable.`,
	Example: `  # Run a server and mint an admin token for it
  refstore serve
  refstore token create --role admin

  # Point the CLI at a server and resolve a reference
  refstore login http://localhost:8470 --token <token>
  refstore resolve support-bot/greet@stable -p name=Bo

  # Sync templates from manifests
  refstore import 'prompts/**/*.yaml'`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "content", Title: "Content Commands:"},
		&cobra.Group{ID: "server", Title: "Server Commands:"},
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
	)

	resolveCmd.GroupID = "content"
	importCmd.GroupID = "content"
	appsCmd.GroupID = "content"
	versionsCmd.GroupID = "content"
	promoteCmd.GroupID = "content"
	diffCmd.GroupID = "content"

	loginCmd.GroupID = "server"
	logoutCmd.GroupID = "server"

	serveCmd.GroupID = "admin"
	tokenCmd.GroupID = "admin"

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
