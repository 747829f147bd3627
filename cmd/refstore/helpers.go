package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/nebari-dev/refstore/internal/cliclient"
	"github.com/nebari-dev/refstore/internal/store"
)

// getAuthenticatedClient loads the stored server URL and token and returns
// an authenticated API client. The caller closes the returned store.
func getAuthenticatedClient() (*cliclient.Client, *store.Store, string, error) {
	s, err := store.New()
	if err != nil {
		return nil, nil, "", err
	}

	serverURL, err := s.LoadServerURL()
	if err != nil {
		s.Close()
		return nil, nil, "", fmt.Errorf("loading server URL: %w", err)
	}
	creds, err := s.LoadCredentials()
	if err != nil {
		s.Close()
		return nil, nil, "", fmt.Errorf("loading credentials: %w", err)
	}
	if serverURL == "" || creds.Token == "" {
		s.Close()
		return nil, nil, "", fmt.Errorf("not logged in; run 'refstore login <server-url>' first")
	}

	return cliclient.New(serverURL, creds.Token), s, serverURL, nil
}

// parseParams turns key=value pairs into a parameter map.
func parseParams(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", p)
		}
		params[k] = v
	}
	return params, nil
}

// formatTimestamp formats a time for table output, in local time.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
