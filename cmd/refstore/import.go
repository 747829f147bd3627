package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nebari-dev/refstore/internal/logger"
	"github.com/nebari-dev/refstore/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	importDryRun  bool
	importVerbose bool
)

var importCmd = &cobra.Command{
	Use:   "import <manifest-pattern>...",
	Short: "Create or update templates from manifest files",
	Long: `Reads YAML (.yaml, .yml) or TOML (.toml) manifests and brings the server
in line with them. Missing apps and templates are created, a version is added
only when a template's content differs from its latest version, and declared
promotions are applied. Running the same import twice changes nothing.

Patterns may use ** to match nested directories.

Examples:
  refstore import refstore.yaml
  refstore import 'prompts/**/*.yaml' --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Print the changes without making them")
	importCmd.Flags().BoolVarP(&importVerbose, "verbose", "v", false, "Log every request")
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := manifest.Expand(args)
	if err != nil {
		return err
	}

	manifests := make([]*manifest.Manifest, 0, len(files))
	for _, f := range files {
		m, err := manifest.Load(f)
		if err != nil {
			return err
		}
		manifests = append(manifests, m)
	}

	client, s, _, err := getAuthenticatedClient()
	if err != nil {
		return err
	}
	defer s.Close()

	level := "warn"
	if importVerbose {
		level = "debug"
	}
	im := manifest.NewImporter(client, importDryRun, logger.New(os.Stderr, "text", level))

	prefix := ""
	if importDryRun {
		prefix = "would "
	}
	ctx := context.Background()
	total := 0
	for _, m := range manifests {
		actions, err := im.Import(ctx, m)
		for _, a := range actions {
			fmt.Printf("%s%s\n", prefix, a)
		}
		total += len(actions)
		if err != nil {
			return fmt.Errorf("%s: %w", m.Path, err)
		}
	}

	if total == 0 {
		fmt.Fprintln(os.Stderr, "Everything up to date")
	}
	return nil
}
