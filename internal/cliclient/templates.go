package cliclient

import (
	"context"
	"fmt"
)

func templatePath(app, slug string) string {
	return fmt.Sprintf("/apps/%s/templates/%s", escape(app), escape(slug))
}

// GetTemplate returns a template by slug.
func (c *Client) GetTemplate(ctx context.Context, app, slug string) (*Template, error) {
	var tmpl Template
	if _, err := c.Get(ctx, templatePath(app, slug), &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// CreateTemplate creates a template, with version 1 when content is given.
func (c *Client) CreateTemplate(ctx context.Context, app string, req CreateTemplateRequest) (*CreateTemplateResponse, error) {
	var resp CreateTemplateResponse
	if _, err := c.Post(ctx, fmt.Sprintf("/apps/%s/templates", escape(app)), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTemplateVersions returns a template's versions, newest first.
func (c *Client) ListTemplateVersions(ctx context.Context, app, slug string) ([]Version, error) {
	var versions []Version
	_, err := c.Get(ctx, templatePath(app, slug)+"/versions", &versions)
	return versions, err
}

// CreateTemplateVersion saves new template content as the next version.
func (c *Client) CreateTemplateVersion(ctx context.Context, app, slug string, req CreateVersionRequest) (*Version, error) {
	var v Version
	if _, err := c.Post(ctx, templatePath(app, slug)+"/versions", req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// PromoteTemplateVersion moves a status tag onto a template version.
func (c *Client) PromoteTemplateVersion(ctx context.Context, app, slug string, version int, status string) (*Version, error) {
	var v Version
	path := fmt.Sprintf("%s/versions/%d/promote", templatePath(app, slug), version)
	if _, err := c.Post(ctx, path, map[string]string{"status": status}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
