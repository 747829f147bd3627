package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nebari-dev/refstore/internal/cliclient"
	"github.com/nebari-dev/refstore/internal/ref"
	"github.com/spf13/cobra"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List apps in your workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, s, _, err := getAuthenticatedClient()
		if err != nil {
			return err
		}
		defer s.Close()

		apps, err := client.ListApps(context.Background())
		if err != nil {
			return err
		}
		if len(apps) == 0 {
			fmt.Fprintln(os.Stderr, "No apps yet. Create one with 'refstore import'.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SLUG\tNAME\tCREATED")
		for _, a := range apps {
			fmt.Fprintf(w, "%s\t%s\t%s\n", a.Slug, a.Name, formatTimestamp(a.CreatedAt))
		}
		return w.Flush()
	},
}

var versionsCmd = &cobra.Command{
	Use:   "versions <app>/<slug>",
	Short: "List the versions of a template or blueprint",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

var promoteCmd = &cobra.Command{
	Use:   "promote <app>/<slug>[@v<n>] <status>",
	Short: "Move a status tag onto a version",
	Long: `Moves a status (draft, active, stable, deprecated) onto one version of a
template or blueprint. The previous holder of the status drops to draft.
Without a pinned version the latest version is promoted.

Examples:
  refstore promote support-bot/greet@v3 stable
  refstore promote support-bot/onboarding active`,
	Args: cobra.ExactArgs(2),
	RunE: runPromote,
}

var diffCmd = &cobra.Command{
	Use:   "diff <app>/<blueprint> <from> <to>",
	Short: "Compare two blueprint versions",
	Long: `Shows which blocks were added, removed or changed between two blueprint
versions. Exits with status 1 when the versions differ.

Examples:
  refstore diff support-bot/onboarding 1 2
  refstore diff support-bot/onboarding v1 v3`,
	Args: cobra.ExactArgs(3),
	RunE: runDiff,
}

// entity is a template or blueprint addressed by a reference.
type entity struct {
	app, slug string
	blueprint bool
}

func (e entity) kind() string {
	if e.blueprint {
		return "blueprint"
	}
	return "template"
}

// findEntity looks the slug up as a template first, then as a blueprint,
// the same order the server resolves references in.
func findEntity(ctx context.Context, client *cliclient.Client, app, slug string) (entity, error) {
	e := entity{app: app, slug: slug}
	_, err := client.GetTemplate(ctx, app, slug)
	if err == nil {
		return e, nil
	}
	if !cliclient.IsNotFound(err) {
		return e, err
	}
	if _, err := client.GetBlueprint(ctx, app, slug); err != nil {
		if cliclient.IsNotFound(err) {
			return e, fmt.Errorf("no template or blueprint %s/%s", app, slug)
		}
		return e, err
	}
	e.blueprint = true
	return e, nil
}

func listVersions(ctx context.Context, client *cliclient.Client, e entity) ([]cliclient.Version, error) {
	if e.blueprint {
		return client.ListBlueprintVersions(ctx, e.app, e.slug)
	}
	return client.ListTemplateVersions(ctx, e.app, e.slug)
}

func runVersions(cmd *cobra.Command, args []string) error {
	reference, err := ref.Parse(args[0])
	if err != nil {
		return err
	}

	client, s, _, err := getAuthenticatedClient()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	e, err := findEntity(ctx, client, reference.App, reference.Entity)
	if err != nil {
		return err
	}
	versions, err := listVersions(ctx, client, e)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintf(os.Stderr, "%s %s/%s has no versions\n", e.kind(), e.app, e.slug)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS\tCREATED\tBY\tNOTE")
	for _, v := range versions {
		fmt.Fprintf(w, "v%d\t%s\t%s\t%s\t%s\n", v.VersionNumber, v.Status, formatTimestamp(v.CreatedAt), v.CreatedBy, v.Note)
	}
	return w.Flush()
}

func runPromote(cmd *cobra.Command, args []string) error {
	reference, err := ref.Parse(args[0])
	if err != nil {
		return err
	}
	if reference.Tag.Kind == ref.TagStatus {
		return fmt.Errorf("promote takes a pinned version such as %s", reference.Pinned(1))
	}
	status := strings.ToLower(args[1])

	client, s, _, err := getAuthenticatedClient()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	e, err := findEntity(ctx, client, reference.App, reference.Entity)
	if err != nil {
		return err
	}

	number := reference.Tag.Version
	if reference.Tag.Kind == ref.TagLatest {
		versions, err := listVersions(ctx, client, e)
		if err != nil {
			return err
		}
		for _, v := range versions {
			if v.VersionNumber > number {
				number = v.VersionNumber
			}
		}
		if number == 0 {
			return fmt.Errorf("%s %s/%s has no versions", e.kind(), e.app, e.slug)
		}
	}

	var v *cliclient.Version
	if e.blueprint {
		v, err = client.PromoteBlueprintVersion(ctx, e.app, e.slug, number, status)
	} else {
		v, err = client.PromoteTemplateVersion(ctx, e.app, e.slug, number, status)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s is now %s\n", reference.Pinned(v.VersionNumber), v.Status)
	return nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	reference, err := ref.Parse(args[0])
	if err != nil {
		return err
	}
	from, err := parseVersionArg(args[1])
	if err != nil {
		return err
	}
	to, err := parseVersionArg(args[2])
	if err != nil {
		return err
	}

	client, s, _, err := getAuthenticatedClient()
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := client.DiffBlueprint(context.Background(), reference.App, reference.Entity, from, to)
	if err != nil {
		return err
	}

	changed := false
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BLOCK\tCHANGE\tFROM\tTO")
	for _, d := range entries {
		if d.Kind != "unchanged" {
			changed = true
		}
		name := d.Slug
		if name == "" {
			name = d.BlockID + " (deleted)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, d.Kind, versionCell(d.From), versionCell(d.To))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if changed {
		s.Close()
		os.Exit(1)
	}
	return nil
}

// parseVersionArg accepts "3" or "v3".
func parseVersionArg(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "v"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid version %q", s)
	}
	return n, nil
}

func versionCell(n int) string {
	if n == 0 {
		return "-"
	}
	return "v" + strconv.Itoa(n)
}
