package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nebari-dev/refstore/internal/audit"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/versioning"
	"gorm.io/gorm"
)

// TemplateVersionStore is the version store for template content.
type TemplateVersionStore = versioning.Store[models.TemplateVersion, *models.TemplateVersion]

// TemplateService contains the business logic for templates and their versions.
type TemplateService struct {
	db       *gorm.DB
	apps     *AppService
	versions *TemplateVersionStore
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(db *gorm.DB, apps *AppService, versions *TemplateVersionStore) *TemplateService {
	return &TemplateService{db: db, apps: apps, versions: versions}
}

// List returns the templates of an app.
func (s *TemplateService) List(ctx context.Context, scope Scope, appSlug string) ([]models.Template, error) {
	app, err := s.apps.Get(ctx, scope, appSlug)
	if err != nil {
		return nil, err
	}

	var templates []models.Template
	if err := s.db.WithContext(ctx).Where("app_id = ?", app.ID).Order("slug ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Get returns a single template by app and slug.
func (s *TemplateService) Get(ctx context.Context, scope Scope, appSlug, slug string) (*models.Template, error) {
	app, err := s.apps.Get(ctx, scope, appSlug)
	if err != nil {
		return nil, err
	}

	var tmpl models.Template
	if err := s.db.WithContext(ctx).Where("app_id = ? AND slug = ?", app.ID, slug).First(&tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("template %q", slug)
		}
		return nil, err
	}
	return &tmpl, nil
}

// Create validates and creates a template. When req.Content is set, version
// 1 is saved as well; it is returned as the second value.
func (s *TemplateService) Create(ctx context.Context, scope Scope, appSlug string, req CreateTemplateRequest) (*models.Template, *models.TemplateVersion, error) {
	if err := validateSlug("slug", req.Slug); err != nil {
		return nil, nil, err
	}
	if err := validateName(req.Name); err != nil {
		return nil, nil, err
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, nil, err
	}

	app, err := s.apps.Get(ctx, scope, appSlug)
	if err != nil {
		return nil, nil, err
	}

	tmpl := models.Template{
		AppID:       app.ID,
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		ModelHint:   req.ModelHint,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := slugTaken(tx, app.ID, req.Slug)
		if err != nil {
			return err
		}
		if taken {
			return &ConflictError{Message: fmt.Sprintf("%s/%s already exists", app.Slug, req.Slug)}
		}
		return tx.Create(&tmpl).Error
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return nil, nil, err
		}
		if versioning.IsUniqueViolation(err) {
			return nil, nil, &ConflictError{Message: fmt.Sprintf("%s/%s already exists", app.Slug, req.Slug)}
		}
		return nil, nil, fmt.Errorf("create template: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionCreateTemplate, "template:"+tmpl.ID.String(), map[string]interface{}{
		"app":  app.Slug,
		"slug": tmpl.Slug,
	})

	if req.Content == "" {
		return &tmpl, nil, nil
	}
	v, err := s.createVersion(ctx, scope, &tmpl, CreateVersionRequest{Content: req.Content, Note: req.Note})
	if err != nil {
		return &tmpl, nil, err
	}
	return &tmpl, v, nil
}

// Update changes the unversioned fields of a template.
func (s *TemplateService) Update(ctx context.Context, scope Scope, appSlug, slug string, req UpdateEntityRequest) (*models.Template, error) {
	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return nil, err
		}
	}

	tmpl, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}

	updates := entityUpdates(req)
	if len(updates) == 0 {
		return tmpl, nil
	}
	if err := s.db.WithContext(ctx).Model(tmpl).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionUpdateTemplate, "template:"+tmpl.ID.String(), updates)
	return s.Get(ctx, scope, appSlug, slug)
}

// Delete removes a template and all its versions.
func (s *TemplateService) Delete(ctx context.Context, scope Scope, appSlug, slug string) error {
	tmpl, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteTemplates(tx, []string{tmpl.ID.String()})
	}); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionDeleteTemplate, "template:"+tmpl.ID.String(), map[string]interface{}{
		"app":  appSlug,
		"slug": slug,
	})
	return nil
}

// CreateVersion saves new content as the next draft version.
func (s *TemplateService) CreateVersion(ctx context.Context, scope Scope, appSlug, slug string, req CreateVersionRequest) (*models.TemplateVersion, error) {
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}
	tmpl, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	return s.createVersion(ctx, scope, tmpl, req)
}

func (s *TemplateService) createVersion(ctx context.Context, scope Scope, tmpl *models.Template, req CreateVersionRequest) (*models.TemplateVersion, error) {
	v, err := s.versions.Create(ctx, tmpl.ID, req.Note, scope.Actor, func(tx *gorm.DB, v *models.TemplateVersion) error {
		v.Content = req.Content
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionCreateTemplateVersion, "template:"+tmpl.ID.String(), map[string]interface{}{
		"version": v.VersionNumber,
	})
	return v, nil
}

// ListVersions returns every version of a template, newest first.
func (s *TemplateService) ListVersions(ctx context.Context, scope Scope, appSlug, slug string) ([]models.TemplateVersion, error) {
	tmpl, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.List(ctx, tmpl.ID)
	return versions, storeError(err)
}

// GetVersion returns version n of a template.
func (s *TemplateService) GetVersion(ctx context.Context, scope Scope, appSlug, slug string, n int) (*models.TemplateVersion, error) {
	tmpl, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	v, err := s.versions.GetByNumber(ctx, tmpl.ID, n)
	if err != nil {
		return nil, storeError(err)
	}
	return v, nil
}

// PromoteVersion moves version n to status, demoting the previous holder.
func (s *TemplateService) PromoteVersion(ctx context.Context, scope Scope, appSlug, slug string, n int, status string) (*models.TemplateVersion, error) {
	st, err := validateStatus(status)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	target, err := s.versions.GetByNumber(ctx, tmpl.ID, n)
	if err != nil {
		return nil, storeError(err)
	}

	v, err := s.versions.Promote(ctx, tmpl.ID, target.ID, st)
	if err != nil {
		return nil, storeError(err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionPromoteTemplateVersion, "template:"+tmpl.ID.String(), map[string]interface{}{
		"version": v.VersionNumber,
		"status":  v.Status,
	})
	return v, nil
}

// RestoreVersion copies version n into a new draft version.
func (s *TemplateService) RestoreVersion(ctx context.Context, scope Scope, appSlug, slug string, n int) (*models.TemplateVersion, error) {
	tmpl, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	source, err := s.versions.GetByNumber(ctx, tmpl.ID, n)
	if err != nil {
		return nil, storeError(err)
	}

	v, err := s.versions.Restore(ctx, tmpl.ID, source.ID, scope.Actor)
	if err != nil {
		return nil, storeError(err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionRestoreTemplateVersion, "template:"+tmpl.ID.String(), map[string]interface{}{
		"from":    n,
		"version": v.VersionNumber,
	})
	return v, nil
}

func entityUpdates(req UpdateEntityRequest) map[string]interface{} {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ModelHint != nil {
		updates["model_hint"] = *req.ModelHint
	}
	return updates
}
