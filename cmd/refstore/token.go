package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/cliclient"
	"github.com/nebari-dev/refstore/internal/config"
	"github.com/spf13/cobra"
)

var (
	tokenWorkspace string
	tokenApp       string
	tokenRole      string
	tokenPlan      string
	tokenTTL       time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API credentials",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Sign a credential with the server's secret",
	Long: `Signs a credential with the server configuration's jwt secret. Run it
where the server's config.yaml or REFSTORE_* environment is available.

The workspace id is generated when not given, which starts a new workspace.

Examples:
  refstore token create --role admin
  refstore token create --workspace <uuid> --role viewer --plan pro --ttl 720h`,
	Args: cobra.NoArgs,
	RunE: runTokenCreate,
}

var (
	issueRole  string
	issueApp   string
	issueHours int
)

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Ask the server for a credential derived from yours",
	Long: `Requests a new credential from the server you are logged in to. It keeps
your workspace and plan, and can be narrowed to one app. Requires the admin
role.

Examples:
  refstore token issue --role viewer --app support-bot
  refstore token issue --role editor --ttl-hours 24`,
	Args: cobra.NoArgs,
	RunE: runTokenIssue,
}

func init() {
	tokenIssueCmd.Flags().StringVar(&issueRole, "role", auth.RoleViewer, "Role: viewer, editor or admin")
	tokenIssueCmd.Flags().StringVar(&issueApp, "app", "", "Restrict the credential to one app slug")
	tokenIssueCmd.Flags().IntVar(&issueHours, "ttl-hours", 0, "Validity in hours (default: server default)")
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenCreateCmd.Flags().StringVar(&tokenWorkspace, "workspace", "", "Workspace id (default: new workspace)")
	tokenCreateCmd.Flags().StringVar(&tokenApp, "app-id", "", "Restrict the credential to one app id")
	tokenCreateCmd.Flags().StringVar(&tokenRole, "role", auth.RoleEditor, "Role: viewer, editor or admin")
	tokenCreateCmd.Flags().StringVar(&tokenPlan, "plan", "free", "Plan tier used for rate limiting")
	tokenCreateCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenDuration, "Validity period")
	tokenCmd.AddCommand(tokenCreateCmd)
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	req := auth.IssueRequest{Role: tokenRole, Plan: tokenPlan, TTL: tokenTTL}
	if tokenWorkspace == "" {
		req.WorkspaceID = uuid.New()
	} else if req.WorkspaceID, err = uuid.Parse(tokenWorkspace); err != nil {
		return fmt.Errorf("invalid workspace id: %w", err)
	}
	if tokenApp != "" {
		if req.AppID, err = uuid.Parse(tokenApp); err != nil {
			return fmt.Errorf("invalid app id: %w", err)
		}
	}

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	token, cred, err := issuer.Issue(req)
	if err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		fmt.Fprintln(os.Stderr, "Warning: signed with the default development secret")
	}
	fmt.Fprintf(os.Stderr, "Workspace: %s\nRole:      %s\nPlan:      %s\n", cred.WorkspaceID, cred.Role, cred.Plan)
	fmt.Println(token)
	return nil
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	client, s, _, err := getAuthenticatedClient()
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := client.IssueToken(context.Background(), cliclient.IssueTokenRequest{
		Role:     issueRole,
		App:      issueApp,
		TTLHours: issueHours,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Role:    %s\nPlan:    %s\nExpires: %s\n",
		resp.Credential.Role, resp.Credential.Plan, formatTimestamp(resp.ExpiresAt))
	fmt.Println(resp.Token)
	return nil
}
