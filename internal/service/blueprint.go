package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nebari-dev/refstore/internal/audit"
	"github.com/nebari-dev/refstore/internal/blueprint"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/versioning"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BlockVersionStore is the version store for block content.
type BlockVersionStore = versioning.Store[models.BlockVersion, *models.BlockVersion]

// BlueprintService contains the business logic for blueprints, their blocks
// and their snapshot versions.
type BlueprintService struct {
	db        *gorm.DB
	apps      *AppService
	versioner *blueprint.Versioner
	blocks    *BlockVersionStore
}

// NewBlueprintService creates a new BlueprintService.
func NewBlueprintService(db *gorm.DB, apps *AppService, versioner *blueprint.Versioner, blocks *BlockVersionStore) *BlueprintService {
	return &BlueprintService{db: db, apps: apps, versioner: versioner, blocks: blocks}
}

// List returns the blueprints of an app.
func (s *BlueprintService) List(ctx context.Context, scope Scope, appSlug string) ([]models.Blueprint, error) {
	app, err := s.apps.Get(ctx, scope, appSlug)
	if err != nil {
		return nil, err
	}

	var blueprints []models.Blueprint
	if err := s.db.WithContext(ctx).Where("app_id = ?", app.ID).Order("slug ASC").Find(&blueprints).Error; err != nil {
		return nil, err
	}
	return blueprints, nil
}

// Get returns a blueprint with its blocks in position order.
func (s *BlueprintService) Get(ctx context.Context, scope Scope, appSlug, slug string) (*models.Blueprint, error) {
	app, err := s.apps.Get(ctx, scope, appSlug)
	if err != nil {
		return nil, err
	}

	var bp models.Blueprint
	if err := s.db.WithContext(ctx).
		Preload("Blocks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, slug ASC") }).
		Where("app_id = ? AND slug = ?", app.ID, slug).
		First(&bp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("blueprint %q", slug)
		}
		return nil, err
	}
	return &bp, nil
}

// Create validates and creates an empty blueprint.
func (s *BlueprintService) Create(ctx context.Context, scope Scope, appSlug string, req CreateBlueprintRequest) (*models.Blueprint, error) {
	if err := validateSlug("slug", req.Slug); err != nil {
		return nil, err
	}
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, err
	}

	app, err := s.apps.Get(ctx, scope, appSlug)
	if err != nil {
		return nil, err
	}

	bp := models.Blueprint{
		AppID:       app.ID,
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		ModelHint:   req.ModelHint,
	}
	conflict := &ConflictError{Message: fmt.Sprintf("%s/%s already exists", app.Slug, req.Slug)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := slugTaken(tx, app.ID, req.Slug)
		if err != nil {
			return err
		}
		if taken {
			return conflict
		}
		return tx.Create(&bp).Error
	})
	switch {
	case err == nil:
	case errors.Is(err, conflict), versioning.IsUniqueViolation(err):
		return nil, conflict
	default:
		return nil, fmt.Errorf("create blueprint: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionCreateBlueprint, "blueprint:"+bp.ID.String(), map[string]interface{}{
		"app":  app.Slug,
		"slug": bp.Slug,
	})
	return &bp, nil
}

// Update changes the unversioned fields of a blueprint.
func (s *BlueprintService) Update(ctx context.Context, scope Scope, appSlug, slug string, req UpdateEntityRequest) (*models.Blueprint, error) {
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

	bp, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	updates := entityUpdates(req)
	if len(updates) == 0 {
		return bp, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Blueprint{}).Where("id = ?", bp.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update blueprint: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionUpdateBlueprint, "blueprint:"+bp.ID.String(), updates)
	return s.Get(ctx, scope, appSlug, slug)
}

// Delete removes a blueprint with its blocks, block versions and snapshots.
func (s *BlueprintService) Delete(ctx context.Context, scope Scope, appSlug, slug string) error {
	bp, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteBlueprints(tx, []string{bp.ID.String()})
	}); err != nil {
		return fmt.Errorf("delete blueprint: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionDeleteBlueprint, "blueprint:"+bp.ID.String(), map[string]interface{}{
		"app":  appSlug,
		"slug": slug,
	})
	return nil
}

// --- Blocks ---

func (s *BlueprintService) getBlock(ctx context.Context, scope Scope, appSlug, bpSlug, blockSlug string) (*models.Blueprint, *models.Block, error) {
	bp, err := s.Get(ctx, scope, appSlug, bpSlug)
	if err != nil {
		return nil, nil, err
	}
	for i := range bp.Blocks {
		if bp.Blocks[i].Slug == blockSlug {
			return bp, &bp.Blocks[i], nil
		}
	}
	return nil, nil, notFound("block %q", blockSlug)
}

// CreateBlock adds a block to a blueprint. When req.Content is set, block
// version 1 is saved as well.
func (s *BlueprintService) CreateBlock(ctx context.Context, scope Scope, appSlug, bpSlug string, req CreateBlockRequest) (*models.Block, *models.BlockVersion, error) {
	if err := validateSlug("slug", req.Slug); err != nil {
		return nil, nil, err
	}
	blockType, err := validateBlockType(req.Type)
	if err != nil {
		return nil, nil, err
	}
	if err := validatePosition(req.Position); err != nil {
		return nil, nil, err
	}
	if err := validateConfig(req.Config); err != nil {
		return nil, nil, err
	}

	bp, err := s.Get(ctx, scope, appSlug, bpSlug)
	if err != nil {
		return nil, nil, err
	}

	position := 0
	if n := len(bp.Blocks); n > 0 {
		position = bp.Blocks[n-1].Position + 1
	}
	if req.Position != nil {
		position = *req.Position
	}

	block := models.Block{
		BlueprintID: bp.ID,
		Slug:        req.Slug,
		Type:        blockType,
		Position:    position,
	}
	if err := s.db.WithContext(ctx).Create(&block).Error; err != nil {
		if versioning.IsUniqueViolation(err) {
			return nil, nil, &ConflictError{Message: fmt.Sprintf("block %q already exists in %s", req.Slug, bpSlug)}
		}
		return nil, nil, fmt.Errorf("create block: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionCreateBlock, "block:"+block.ID.String(), map[string]interface{}{
		"blueprint": bp.ID.String(),
		"slug":      block.Slug,
	})

	if req.Content == "" {
		return &block, nil, nil
	}
	v, err := s.createBlockVersion(ctx, scope, &block, CreateBlockVersionRequest{Content: req.Content, Config: req.Config, Note: req.Note})
	if err != nil {
		return &block, nil, err
	}
	return &block, v, nil
}

// UpdateBlock changes the live state of a block. Snapshots are unaffected;
// composition reads position and disabled at resolve time.
func (s *BlueprintService) UpdateBlock(ctx context.Context, scope Scope, appSlug, bpSlug, blockSlug string, req UpdateBlockRequest) (*models.Block, error) {
	updates := map[string]interface{}{}
	if req.Type != nil {
		bt, err := validateBlockType(*req.Type)
		if err != nil {
			return nil, err
		}
		updates["type"] = bt
	}
	if req.Position != nil {
		if err := validatePosition(req.Position); err != nil {
			return nil, err
		}
		updates["position"] = *req.Position
	}
	if req.Disabled != nil {
		updates["disabled"] = *req.Disabled
	}

	_, block, err := s.getBlock(ctx, scope, appSlug, bpSlug, blockSlug)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return block, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Block{}).Where("id = ?", block.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update block: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionUpdateBlock, "block:"+block.ID.String(), updates)

	var updated models.Block
	if err := s.db.WithContext(ctx).First(&updated, "id = ?", block.ID).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteBlock removes a block and its versions. Existing blueprint versions
// keep their snapshot entries for it.
func (s *BlueprintService) DeleteBlock(ctx context.Context, scope Scope, appSlug, bpSlug, blockSlug string) error {
	_, block, err := s.getBlock(ctx, scope, appSlug, bpSlug, blockSlug)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteBlocks(tx, []string{block.ID.String()})
	}); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionDeleteBlock, "block:"+block.ID.String(), map[string]interface{}{
		"slug": blockSlug,
	})
	return nil
}

// CreateBlockVersion saves new block content as the next draft version.
func (s *BlueprintService) CreateBlockVersion(ctx context.Context, scope Scope, appSlug, bpSlug, blockSlug string, req CreateBlockVersionRequest) (*models.BlockVersion, error) {
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}
	if err := validateConfig(req.Config); err != nil {
		return nil, err
	}
	_, block, err := s.getBlock(ctx, scope, appSlug, bpSlug, blockSlug)
	if err != nil {
		return nil, err
	}
	return s.createBlockVersion(ctx, scope, block, req)
}

func (s *BlueprintService) createBlockVersion(ctx context.Context, scope Scope, block *models.Block, req CreateBlockVersionRequest) (*models.BlockVersion, error) {
	v, err := s.blocks.Create(ctx, block.ID, req.Note, scope.Actor, func(tx *gorm.DB, v *models.BlockVersion) error {
		v.Content = req.Content
		if len(req.Config) > 0 {
			v.Config = datatypes.JSON(req.Config)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionCreateBlockVersion, "block:"+block.ID.String(), map[string]interface{}{
		"version": v.VersionNumber,
	})
	return v, nil
}

// ListBlockVersions returns every version of a block, newest first.
func (s *BlueprintService) ListBlockVersions(ctx context.Context, scope Scope, appSlug, bpSlug, blockSlug string) ([]models.BlockVersion, error) {
	_, block, err := s.getBlock(ctx, scope, appSlug, bpSlug, blockSlug)
	if err != nil {
		return nil, err
	}
	versions, err := s.blocks.List(ctx, block.ID)
	return versions, storeError(err)
}

// PromoteBlockVersion moves block version n to status.
func (s *BlueprintService) PromoteBlockVersion(ctx context.Context, scope Scope, appSlug, bpSlug, blockSlug string, n int, status string) (*models.BlockVersion, error) {
	st, err := validateStatus(status)
	if err != nil {
		return nil, err
	}
	_, block, err := s.getBlock(ctx, scope, appSlug, bpSlug, blockSlug)
	if err != nil {
		return nil, err
	}
	target, err := s.blocks.GetByNumber(ctx, block.ID, n)
	if err != nil {
		return nil, storeError(err)
	}
	v, err := s.blocks.Promote(ctx, block.ID, target.ID, st)
	if err != nil {
		return nil, storeError(err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionPromoteBlockVersion, "block:"+block.ID.String(), map[string]interface{}{
		"version": v.VersionNumber,
		"status":  v.Status,
	})
	return v, nil
}

// RestoreBlockVersion copies block version n into a new draft version.
func (s *BlueprintService) RestoreBlockVersion(ctx context.Context, scope Scope, appSlug, bpSlug, blockSlug string, n int) (*models.BlockVersion, error) {
	_, block, err := s.getBlock(ctx, scope, appSlug, bpSlug, blockSlug)
	if err != nil {
		return nil, err
	}
	source, err := s.blocks.GetByNumber(ctx, block.ID, n)
	if err != nil {
		return nil, storeError(err)
	}
	v, err := s.blocks.Restore(ctx, block.ID, source.ID, scope.Actor)
	if err != nil {
		return nil, storeError(err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionRestoreBlockVersion, "block:"+block.ID.String(), map[string]interface{}{
		"from":    n,
		"version": v.VersionNumber,
	})
	return v, nil
}

// --- Blueprint versions ---

// CreateVersion snapshots the latest version of every block.
func (s *BlueprintService) CreateVersion(ctx context.Context, scope Scope, appSlug, slug string, req SnapshotRequest) (*models.BlueprintVersion, error) {
	bp, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	v, err := s.versioner.CreateVersion(ctx, bp.ID, req.Note, scope.Actor)
	if err != nil {
		return nil, storeError(err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionSnapshotBlueprint, "blueprint:"+bp.ID.String(), map[string]interface{}{
		"version": v.VersionNumber,
		"blocks":  len(v.Snapshot),
	})
	return v, nil
}

// ListVersions returns every snapshot of a blueprint, newest first.
func (s *BlueprintService) ListVersions(ctx context.Context, scope Scope, appSlug, slug string) ([]models.BlueprintVersion, error) {
	bp, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	versions, err := s.versioner.Versions().List(ctx, bp.ID)
	return versions, storeError(err)
}

// GetVersion returns blueprint version n.
func (s *BlueprintService) GetVersion(ctx context.Context, scope Scope, appSlug, slug string, n int) (*models.BlueprintVersion, error) {
	bp, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	v, err := s.versioner.Versions().GetByNumber(ctx, bp.ID, n)
	if err != nil {
		return nil, storeError(err)
	}
	return v, nil
}

// PromoteVersion moves blueprint version n to status.
func (s *BlueprintService) PromoteVersion(ctx context.Context, scope Scope, appSlug, slug string, n int, status string) (*models.BlueprintVersion, error) {
	st, err := validateStatus(status)
	if err != nil {
		return nil, err
	}
	bp, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	store := s.versioner.Versions()
	target, err := store.GetByNumber(ctx, bp.ID, n)
	if err != nil {
		return nil, storeError(err)
	}
	v, err := store.Promote(ctx, bp.ID, target.ID, st)
	if err != nil {
		return nil, storeError(err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionPromoteBlueprint, "blueprint:"+bp.ID.String(), map[string]interface{}{
		"version": v.VersionNumber,
		"status":  v.Status,
	})
	return v, nil
}

// RestoreVersion copies the snapshot of blueprint version n into a new draft
// version. Block content is not touched.
func (s *BlueprintService) RestoreVersion(ctx context.Context, scope Scope, appSlug, slug string, n int) (*models.BlueprintVersion, error) {
	bp, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	store := s.versioner.Versions()
	source, err := store.GetByNumber(ctx, bp.ID, n)
	if err != nil {
		return nil, storeError(err)
	}
	v, err := store.Restore(ctx, bp.ID, source.ID, scope.Actor)
	if err != nil {
		return nil, storeError(err)
	}

	audit.LogAction(s.db, scope.WorkspaceID, scope.Actor, audit.ActionRestoreBlueprint, "blueprint:"+bp.ID.String(), map[string]interface{}{
		"from":    n,
		"version": v.VersionNumber,
	})
	return v, nil
}

// DiffEntry is a snapshot change annotated with live block state. Slug and
// Position are empty for blocks deleted since.
type DiffEntry struct {
	blueprint.Change
	Slug     string `json:"slug,omitempty"`
	Position *int   `json:"position,omitempty"`
}

// Diff compares blueprint versions from and to. Entries of live blocks come
// first in position order, followed by deleted blocks by id.
func (s *BlueprintService) Diff(ctx context.Context, scope Scope, appSlug, slug string, from, to int) ([]DiffEntry, error) {
	bp, err := s.Get(ctx, scope, appSlug, slug)
	if err != nil {
		return nil, err
	}
	changes, err := s.versioner.DiffVersions(ctx, bp.ID, from, to)
	if err != nil {
		return nil, storeError(err)
	}

	live := make(map[string]models.Block, len(bp.Blocks))
	for _, b := range bp.Blocks {
		live[b.ID.String()] = b
	}

	entries := make([]DiffEntry, len(changes))
	for i, c := range changes {
		entries[i] = DiffEntry{Change: c}
		if b, ok := live[c.BlockID]; ok {
			pos := b.Position
			entries[i].Slug = b.Slug
			entries[i].Position = &pos
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := entries[i].Position, entries[j].Position
		switch {
		case pi != nil && pj != nil:
			return *pi < *pj
		case pi != nil:
			return true
		default:
			return false
		}
	})
	return entries, nil
}
