package cliclient

import (
	"context"
	"fmt"
)

func blueprintPath(app, slug string) string {
	return fmt.Sprintf("/apps/%s/blueprints/%s", escape(app), escape(slug))
}

// GetBlueprint returns a blueprint with its blocks.
func (c *Client) GetBlueprint(ctx context.Context, app, slug string) (*Blueprint, error) {
	var bp Blueprint
	if _, err := c.Get(ctx, blueprintPath(app, slug), &bp); err != nil {
		return nil, err
	}
	return &bp, nil
}

// ListBlueprintVersions returns a blueprint's snapshots, newest first.
func (c *Client) ListBlueprintVersions(ctx context.Context, app, slug string) ([]Version, error) {
	var versions []Version
	_, err := c.Get(ctx, blueprintPath(app, slug)+"/versions", &versions)
	return versions, err
}

// PromoteBlueprintVersion moves a status tag onto a blueprint version.
func (c *Client) PromoteBlueprintVersion(ctx context.Context, app, slug string, version int, status string) (*Version, error) {
	var v Version
	path := fmt.Sprintf("%s/versions/%d/promote", blueprintPath(app, slug), version)
	if _, err := c.Post(ctx, path, map[string]string{"status": status}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DiffBlueprint compares two blueprint versions.
func (c *Client) DiffBlueprint(ctx context.Context, app, slug string, from, to int) ([]DiffEntry, error) {
	var entries []DiffEntry
	path := fmt.Sprintf("%s/diff?from=%d&to=%d", blueprintPath(app, slug), from, to)
	_, err := c.Get(ctx, path, &entries)
	return entries, err
}
