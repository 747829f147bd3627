package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nebari-dev/refstore/internal/cliclient"
	"github.com/nebari-dev/refstore/internal/store"
	"github.com/spf13/cobra"
)

var (
	resolveParams   []string
	resolveMetadata bool
	resolveJSON     bool
	resolveNoCache  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <ref>",
	Short: "Resolve a reference to text",
	Long: `Resolves a reference such as app/slug, app/slug@v3 or app/slug@stable
and prints the interpolated text.

Plain text output is cached locally and revalidated with the server's
ETag, so unchanged text costs the server no body. --json and --metadata
always fetch a fresh response.

Examples:
  refstore resolve support-bot/greet -p name=Bo
  refstore resolve support-bot/onboarding@stable --metadata --json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringArrayVarP(&resolveParams, "param", "p", nil, "Parameter as key=value (repeatable)")
	resolveCmd.Flags().BoolVar(&resolveMetadata, "metadata", false, "Include entity and version metadata")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the full response as JSON")
	resolveCmd.Flags().BoolVar(&resolveNoCache, "no-cache", false, "Skip the local response cache")
}

func runResolve(cmd *cobra.Command, args []string) error {
	params, err := parseParams(resolveParams)
	if err != nil {
		return err
	}

	client, s, serverURL, err := getAuthenticatedClient()
	if err != nil {
		return err
	}
	defer s.Close()

	req := cliclient.ResolveRequest{Ref: args[0], Params: params}
	if resolveMetadata {
		req.Options = &cliclient.ResolveOptions{IncludeMetadata: true}
	}

	useCache := textOnly(resolveJSON, resolveMetadata) && !resolveNoCache
	resp, err := resolveCached(context.Background(), client, s, serverURL, req, useCache)
	if err != nil {
		return err
	}

	if len(resp.UnresolvedParams) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: unresolved parameters: %s\n", strings.Join(resp.UnresolvedParams, ", "))
	}

	if resolveJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Println(resp.ResolvedText)
	return nil
}

// textOnly reports whether the output uses nothing but the resolved text.
// The ETag covers only the text, so other fields are never served from cache.
func textOnly(jsonOut, metadata bool) bool {
	return !jsonOut && !metadata
}

// resolveCached resolves through the local cache. Only the resolved text and
// unresolved parameter names are cached; a 304 returns those alone, with the
// version fields left empty.
func resolveCached(ctx context.Context, client *cliclient.Client, s *store.Store, serverURL string, req cliclient.ResolveRequest, useCache bool) (*cliclient.ResolveResponse, error) {
	metadata := req.Options != nil && req.Options.IncludeMetadata
	key := store.ResolveCacheKey(serverURL, req.Ref, req.Params, metadata)

	var cached cliclient.ResolveResponse
	etag := ""
	if useCache {
		var ok bool
		var err error
		if etag, ok, err = s.LoadCachedResolve(key, &cached); err != nil || !ok {
			etag = ""
		}
	}

	result, err := client.Resolve(ctx, req, etag)
	if err != nil {
		return nil, err
	}
	if result.NotModified {
		return &cliclient.ResolveResponse{
			Ref:              req.Ref,
			ResolvedText:     cached.ResolvedText,
			UnresolvedParams: cached.UnresolvedParams,
		}, nil
	}

	if useCache && result.ETag != "" {
		entry := cliclient.ResolveResponse{
			Ref:              req.Ref,
			ResolvedText:     result.Response.ResolvedText,
			UnresolvedParams: result.Response.UnresolvedParams,
		}
		if err := s.SaveCachedResolve(key, result.ETag, entry); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return result.Response, nil
}
