package cliclient

import (
	"context"
)

// ListApps returns the apps visible to the credential.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	var apps []App
	_, err := c.Get(ctx, "/apps", &apps)
	return apps, err
}

// GetApp returns an app by slug.
func (c *Client) GetApp(ctx context.Context, slug string) (*App, error) {
	var app App
	if _, err := c.Get(ctx, "/apps/"+escape(slug), &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// CreateApp creates a new app.
func (c *Client) CreateApp(ctx context.Context, req CreateAppRequest) (*App, error) {
	var app App
	if _, err := c.Post(ctx, "/apps", req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}
