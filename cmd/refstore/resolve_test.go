package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nebari-dev/refstore/internal/cliclient"
	"github.com/nebari-dev/refstore/internal/store"
)

func TestResolveCached(t *testing.T) {
	text := "Hi Bo"
	bodies := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		etag := `"` + text + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		bodies++
		json.NewEncoder(w).Encode(cliclient.ResolveResponse{Ref: "bot/greet", ResolvedText: text})
	}))
	defer srv.Close()

	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	client := cliclient.New(srv.URL, "tok")
	ctx := context.Background()
	req := cliclient.ResolveRequest{Ref: "bot/greet", Params: map[string]string{"name": "Bo"}}

	for i := 0; i < 2; i++ {
		resp, err := resolveCached(ctx, client, s, srv.URL, req, true)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if resp.ResolvedText != "Hi Bo" {
			t.Fatalf("resolve %d: text = %q", i, resp.ResolvedText)
		}
	}
	if bodies != 1 {
		t.Errorf("server sent %d bodies, want 1", bodies)
	}

	// New content invalidates the validator
	text = "Hello Bo"
	resp, err := resolveCached(ctx, client, s, srv.URL, req, true)
	if err != nil {
		t.Fatal(err)
	}
	if resp.ResolvedText != "Hello Bo" || bodies != 2 {
		t.Errorf("text = %q after %d bodies", resp.ResolvedText, bodies)
	}

	// Without the cache every call fetches a body
	if _, err := resolveCached(ctx, client, s, srv.URL, req, false); err != nil {
		t.Fatal(err)
	}
	if bodies != 3 {
		t.Errorf("bodies = %d, want 3", bodies)
	}
}

func TestResolveCached_NewVersionSameText(t *testing.T) {
	resolvedRef := "bot/greet@v1"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		etag := `"same-text"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		json.NewEncoder(w).Encode(cliclient.ResolveResponse{
			Ref:          "bot/greet@stable",
			ResolvedRef:  resolvedRef,
			VersionID:    "id-" + resolvedRef,
			ResolvedText: "Hi",
			TokenCount:   1,
		})
	}))
	defer srv.Close()

	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	client := cliclient.New(srv.URL, "tok")
	ctx := context.Background()
	req := cliclient.ResolveRequest{Ref: "bot/greet@stable"}

	first, err := resolveCached(ctx, client, s, srv.URL, req, true)
	if err != nil {
		t.Fatal(err)
	}
	if first.ResolvedRef != "bot/greet@v1" {
		t.Fatalf("resolved_ref = %q", first.ResolvedRef)
	}

	// v2 promoted with identical text: the validator still matches
	resolvedRef = "bot/greet@v2"
	second, err := resolveCached(ctx, client, s, srv.URL, req, true)
	if err != nil {
		t.Fatal(err)
	}
	if second.ResolvedText != "Hi" {
		t.Errorf("text = %q, want Hi", second.ResolvedText)
	}
	if second.ResolvedRef == "bot/greet@v1" || second.VersionID == "id-bot/greet@v1" {
		t.Errorf("stale version fields served from cache: %+v", second)
	}

	// Output modes that print version fields bypass the cache
	fresh, err := resolveCached(ctx, client, s, srv.URL, req, textOnly(true, false))
	if err != nil {
		t.Fatal(err)
	}
	if fresh.ResolvedRef != "bot/greet@v2" || fresh.VersionID != "id-bot/greet@v2" {
		t.Errorf("fresh response = %+v", fresh)
	}
}

func TestTextOnly(t *testing.T) {
	tests := []struct {
		json, metadata bool
		want           bool
	}{
		{false, false, true},
		{true, false, false},
		{false, true, false},
		{true, true, false},
	}
	for _, tt := range tests {
		if got := textOnly(tt.json, tt.metadata); got != tt.want {
			t.Errorf("textOnly(%v, %v) = %v, want %v", tt.json, tt.metadata, got, tt.want)
		}
	}
}
