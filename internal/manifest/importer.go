package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nebari-dev/refstore/internal/cliclient"
	"github.com/nebari-dev/refstore/internal/interpolate"
)

// API is the slice of the refstore client the importer drives.
type API interface {
	GetApp(ctx context.Context, slug string) (*cliclient.App, error)
	CreateApp(ctx context.Context, req cliclient.CreateAppRequest) (*cliclient.App, error)
	GetTemplate(ctx context.Context, app, slug string) (*cliclient.Template, error)
	CreateTemplate(ctx context.Context, app string, req cliclient.CreateTemplateRequest) (*cliclient.CreateTemplateResponse, error)
	ListTemplateVersions(ctx context.Context, app, slug string) ([]cliclient.Version, error)
	CreateTemplateVersion(ctx context.Context, app, slug string, req cliclient.CreateVersionRequest) (*cliclient.Version, error)
	PromoteTemplateVersion(ctx context.Context, app, slug string, version int, status string) (*cliclient.Version, error)
}

// Action is one change the importer made, or would make in a dry run.
type Action struct {
	Kind    string // "create-app", "create-template", "create-version" or "promote"
	App     string
	Slug    string
	Version int
	Status  string
	Params  []string // placeholders declared by new content
}

func (a Action) String() string {
	switch a.Kind {
	case "create-app":
		return fmt.Sprintf("create app %s", a.App)
	case "create-template":
		return fmt.Sprintf("create template %s/%s", a.App, a.Slug) + a.paramList()
	case "create-version":
		return fmt.Sprintf("add version to %s/%s", a.App, a.Slug) + a.paramList()
	case "promote":
		return fmt.Sprintf("promote %s/%s@v%d to %s", a.App, a.Slug, a.Version, a.Status)
	}
	return a.Kind
}

func (a Action) paramList() string {
	if len(a.Params) == 0 {
		return ""
	}
	return " (params: " + strings.Join(a.Params, ", ") + ")"
}

// Importer reconciles manifests against a server. Importing the same
// manifest twice changes nothing the second time.
type Importer struct {
	api    API
	dryRun bool
	logger *slog.Logger
}

// NewImporter creates an importer. With dryRun set it only reports.
func NewImporter(api API, dryRun bool, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{api: api, dryRun: dryRun, logger: logger}
}

// Import applies one manifest and returns the actions taken.
func (im *Importer) Import(ctx context.Context, m *Manifest) ([]Action, error) {
	var actions []Action

	appExists := true
	if _, err := im.api.GetApp(ctx, m.App); err != nil {
		if !cliclient.IsNotFound(err) {
			return nil, fmt.Errorf("looking up app %s: %w", m.App, err)
		}
		appExists = false
		name := m.Name
		if name == "" {
			name = m.App
		}
		actions = append(actions, Action{Kind: "create-app", App: m.App})
		if !im.dryRun {
			if _, err := im.api.CreateApp(ctx, cliclient.CreateAppRequest{Slug: m.App, Name: name}); err != nil {
				return actions, fmt.Errorf("creating app %s: %w", m.App, err)
			}
		}
	}

	for _, t := range m.Templates {
		acts, err := im.importTemplate(ctx, m.App, t, appExists)
		actions = append(actions, acts...)
		if err != nil {
			return actions, err
		}
	}
	return actions, nil
}

func (im *Importer) importTemplate(ctx context.Context, app string, t Template, appExists bool) ([]Action, error) {
	var actions []Action

	exists := false
	if appExists {
		if _, err := im.api.GetTemplate(ctx, app, t.Slug); err == nil {
			exists = true
		} else if !cliclient.IsNotFound(err) {
			return nil, fmt.Errorf("looking up template %s/%s: %w", app, t.Slug, err)
		}
	}

	if !exists {
		actions = append(actions, Action{Kind: "create-template", App: app, Slug: t.Slug, Params: interpolate.Placeholders(t.Content)})
		if t.Promote != "" && t.Content != "" {
			actions = append(actions, Action{Kind: "promote", App: app, Slug: t.Slug, Version: 1, Status: t.Promote})
		}
		if im.dryRun {
			return actions, nil
		}
		name := t.Name
		if name == "" {
			name = t.Slug
		}
		if _, err := im.api.CreateTemplate(ctx, app, cliclient.CreateTemplateRequest{
			Slug:        t.Slug,
			Name:        name,
			Description: t.Description,
			ModelHint:   t.ModelHint,
			Content:     t.Content,
			Note:        t.Note,
		}); err != nil {
			return actions, fmt.Errorf("creating template %s/%s: %w", app, t.Slug, err)
		}
		im.logger.Debug("Created template", "app", app, "slug", t.Slug)
		if t.Promote != "" && t.Content != "" {
			if _, err := im.api.PromoteTemplateVersion(ctx, app, t.Slug, 1, t.Promote); err != nil {
				return actions, fmt.Errorf("promoting %s/%s: %w", app, t.Slug, err)
			}
		}
		return actions, nil
	}

	versions, err := im.api.ListTemplateVersions(ctx, app, t.Slug)
	if err != nil {
		return nil, fmt.Errorf("listing versions of %s/%s: %w", app, t.Slug, err)
	}
	latest := latestVersion(versions)

	target := latest
	if t.Content != "" && (latest == nil || latest.Content != t.Content) {
		next := 1
		if latest != nil {
			next = latest.VersionNumber + 1
		}
		actions = append(actions, Action{Kind: "create-version", App: app, Slug: t.Slug, Version: next, Params: interpolate.Placeholders(t.Content)})
		if im.dryRun {
			target = &cliclient.Version{VersionNumber: next}
		} else {
			v, err := im.api.CreateTemplateVersion(ctx, app, t.Slug, cliclient.CreateVersionRequest{Content: t.Content, Note: t.Note})
			if err != nil {
				return actions, fmt.Errorf("adding version to %s/%s: %w", app, t.Slug, err)
			}
			im.logger.Debug("Added template version", "app", app, "slug", t.Slug, "version", v.VersionNumber)
			target = v
		}
	}

	if t.Promote != "" && target != nil && target.Status != t.Promote {
		actions = append(actions, Action{Kind: "promote", App: app, Slug: t.Slug, Version: target.VersionNumber, Status: t.Promote})
		if !im.dryRun {
			if _, err := im.api.PromoteTemplateVersion(ctx, app, t.Slug, target.VersionNumber, t.Promote); err != nil {
				return actions, fmt.Errorf("promoting %s/%s: %w", app, t.Slug, err)
			}
		}
	}
	return actions, nil
}

func latestVersion(versions []cliclient.Version) *cliclient.Version {
	var latest *cliclient.Version
	for i := range versions {
		if latest == nil || versions[i].VersionNumber > latest.VersionNumber {
			latest = &versions[i]
		}
	}
	return latest
}
