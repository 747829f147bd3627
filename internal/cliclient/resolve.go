package cliclient

import (
	"context"
	"net/http"
)

// ResolveResult is a resolve response plus its cache validator. NotModified
// is set when the server answered 304 to a matching ETag, in which case
// Response is nil.
type ResolveResult struct {
	Response    *ResolveResponse
	ETag        string
	NotModified bool
}

// Resolve resolves a reference. A non-empty etag is sent as If-None-Match.
func (c *Client) Resolve(ctx context.Context, req ResolveRequest, etag string) (*ResolveResult, error) {
	var out ResolveResponse
	resp, err := c.request(ctx, http.MethodPost, "/resolve", req, &out, "If-None-Match", etag)
	if err != nil {
		return nil, err
	}
	result := &ResolveResult{ETag: resp.Header.Get("ETag")}
	if resp.StatusCode == http.StatusNotModified {
		result.NotModified = true
		if result.ETag == "" {
			result.ETag = etag
		}
		return result, nil
	}
	result.Response = &out
	return result, nil
}

// IssueToken asks the server for a new credential derived from the caller's.
func (c *Client) IssueToken(ctx context.Context, req IssueTokenRequest) (*IssueTokenResponse, error) {
	var out IssueTokenResponse
	if _, err := c.Post(ctx, "/tokens", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetServerVersion returns the server's version report.
func (c *Client) GetServerVersion(ctx context.Context) (*ServerVersion, error) {
	var v ServerVersion
	if _, err := c.Get(ctx, "/version", &v); err != nil {
		return nil, err
	}
	return &v, nil
}
