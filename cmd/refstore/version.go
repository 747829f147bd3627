package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Long:  `Print the version of the refstore CLI, and of the server when logged in.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("refstore version %s\n", Version)

		client, s, serverURL, err := getAuthenticatedClient()
		if err != nil {
			return
		}
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if v, err := client.GetServerVersion(ctx); err == nil {
			fmt.Printf("server %s version %s\n", serverURL, v.Version)
		}
	},
}
