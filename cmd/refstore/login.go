package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/cliclient"
	"github.com/nebari-dev/refstore/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login <server-url>",
	Short: "Connect to a refstore server",
	Long: `Sets the server URL and stores an API token for it. The token is
checked against the server before it is saved.

Examples:
  refstore login https://refstore.company.com
  refstore login https://refstore.company.com --token <api-token>`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New()
		if err != nil {
			return err
		}
		defer s.Close()
		return s.ClearCredentials()
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "API token (skip the prompt)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	serverURL := strings.TrimRight(args[0], "/")

	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		return fmt.Errorf("server URL must start with http:// or https://")
	}

	token := loginToken
	if token == "" {
		fmt.Fprint(os.Stderr, "API token: ")
		tokBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		token = strings.TrimSpace(string(tokBytes))
	}
	if token == "" {
		return fmt.Errorf("a token is required")
	}

	ctx := context.Background()
	client := cliclient.New(serverURL, token)
	if _, err := client.ListApps(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	s, err := store.New()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SaveServerURL(serverURL); err != nil {
		return err
	}
	if err := s.ClearResolveCache(); err != nil {
		return err
	}
	creds := &store.Credentials{Token: token}
	// The server already accepted the token; the claims are read only for display.
	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
		creds.WorkspaceID = claims.WorkspaceID
		creds.Role = claims.Role
	}
	if err := s.SaveCredentials(creds); err != nil {
		return err
	}

	if creds.Role != "" {
		fmt.Fprintf(os.Stderr, "Logged in to %s as %s of workspace %s\n", serverURL, creds.Role, creds.WorkspaceID)
	} else {
		fmt.Fprintf(os.Stderr, "Logged in to %s\n", serverURL)
	}
	return nil
}
