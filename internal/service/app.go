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

// AppService contains the business logic for apps.
type AppService struct {
	db *gorm.DB
}

// NewAppService creates a new AppService.
func NewAppService(db *gorm.DB) *AppService {
	return &AppService{db: db}
}

// List returns the apps of the workspace visible to the credential.
func (s *AppService) List(ctx context.Context, scope Scope) ([]models.App, error) {
	q := s.db.WithContext(ctx).Where("workspace_id = ?", scope.WorkspaceID)
	if scope.AppScoped() {
		q = q.Where("id = ?", scope.AppID)
	}

	var apps []models.App
	if err := q.Order("slug ASC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// Get returns an app by slug. An app outside the workspace is not found; an
// app the credential is not scoped to is forbidden.
func (s *AppService) Get(ctx context.Context, scope Scope, slug string) (*models.App, error) {
	var app models.App
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND slug = ?", scope.WorkspaceID, slug).
		First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("app %q", slug)
		}
		return nil, err
	}
	if scope.AppScoped() && scope.AppID != app.ID {
		return nil, ErrForbidden
	}
	return &app, nil
}

// Create validates and creates a new app in the caller's workspace.
func (s *AppService) Create(ctx context.Context, scope Scope, req CreateAppRequest) (*models.App, error) {
	if scope.AppScoped() {
		return nil, ErrForbidden
	}
	if err := validateSlug("slug", req.Slug); err != nil {
		return nil, err
	}
	if err := validateName(req.Name); err != nil {
		return nil, err
	}

	app := models.App{
		WorkspaceID: scope.WorkspaceID,
		Slug:        req.Slug,
		Name:        req.Name,
	}
	if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
		if versioning.IsUniqueViolation(err) {
			return nil, &ConflictError{Message: fmt.Sprintf("app %q already exists", req.Slug)}
		}
		return nil, fmt.Errorf("create app: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionCreateApp, "app:"+app.ID.String(), map[string]interface{}{
		"slug": app.Slug,
	})

	return &app, nil
}

// Delete removes an app with all its templates and blueprints.
func (s *AppService) Delete(ctx context.Context, scope Scope, slug string) error {
	app, err := s.Get(ctx, scope, slug)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteApp(tx, app)
	}); err != nil {
		return fmt.Errorf("delete app: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionDeleteApp, "app:"+app.ID.String(), map[string]interface{}{
		"slug": app.Slug,
	})
	return nil
}
