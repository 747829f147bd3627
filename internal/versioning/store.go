// Package versioning numbers, promotes and resolves immutable version rows.
//
// One Store serves each versioned entity kind. Version numbers are
// contiguous per parent starting at 1, and every status except draft has at
// most one holder per parent. Both rules are enforced inside a database
// transaction that locks the parent row; the unique index on
// (parent, version_number) backs up the numbering.
package versioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/ref"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMaxAttempts bounds how often Create retries after losing a race on
// the version number.
const DefaultMaxAttempts = 5

// Row is implemented by every version model.
type Row interface {
	GetID() uuid.UUID
	GetNumber() int
	GetStatus() models.VersionStatus
	SetNote(string)
	SetCreatedBy(string)
	Init(parentID uuid.UUID, number int)
}

// Kind describes where the versions of one entity kind live.
type Kind struct {
	Name         string // "template", "block", "blueprint"
	ParentTable  string // table holding the versioned entity
	ParentColumn string // foreign key column on the version table
}

var (
	TemplateKind  = Kind{Name: "template", ParentTable: "templates", ParentColumn: "template_id"}
	BlockKind     = Kind{Name: "block", ParentTable: "blocks", ParentColumn: "block_id"}
	BlueprintKind = Kind{Name: "blueprint", ParentTable: "blueprints", ParentColumn: "blueprint_id"}
)

// Store manages the versions of one entity kind. T is the version model and
// PT its pointer type.
type Store[T any, PT interface {
	*T
	Row
	CopyContentFrom(*T)
}] struct {
	db          *gorm.DB
	kind        Kind
	maxAttempts int
}

// New creates a Store for the given kind.
func New[T any, PT interface {
	*T
	Row
	CopyContentFrom(*T)
}](db *gorm.DB, kind Kind) *Store[T, PT] {
	return &Store[T, PT]{db: db, kind: kind, maxAttempts: DefaultMaxAttempts}
}

// FillFunc sets the content of a version about to be inserted. It runs in
// the creating transaction and must use tx for every query.
type FillFunc[PT any] func(tx *gorm.DB, row PT) error

// Create inserts the next version of parentID in draft status.
func (s *Store[T, PT]) Create(ctx context.Context, parentID uuid.UUID, note, actor string, fill FillFunc[PT]) (PT, error) {
	for attempt := 1; ; attempt++ {
		row, err := s.create(ctx, parentID, note, actor, fill)
		if err == nil {
			return row, nil
		}
		if !IsUniqueViolation(err) {
			return nil, err
		}
		if attempt >= s.maxAttempts {
			return nil, fmt.Errorf("%w: %s %s after %d attempts", ErrVersionConflict, s.kind.Name, parentID, attempt)
		}
	}
}

func (s *Store[T, PT]) create(ctx context.Context, parentID uuid.UUID, note, actor string, fill FillFunc[PT]) (PT, error) {
	row := PT(new(T))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockParent(tx, parentID); err != nil {
			return err
		}

		var maxNumber int
		if err := tx.Model(new(T)).
			Where(s.kind.ParentColumn+" = ?", parentID).
			Select("COALESCE(MAX(version_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return err
		}

		row.Init(parentID, maxNumber+1)
		row.SetNote(note)
		row.SetCreatedBy(actor)
		if fill != nil {
			if err := fill(tx, row); err != nil {
				return err
			}
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Promote moves versionID to status. For every status but draft, the
// previous holder under the same parent is demoted to draft in the same
// transaction. A version that does not belong to parentID is not found and
// nothing is written.
func (s *Store[T, PT]) Promote(ctx context.Context, parentID, versionID uuid.UUID, status models.VersionStatus) (PT, error) {
	if _, ok := models.ParseStatus(string(status)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	row := PT(new(T))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockParent(tx, parentID); err != nil {
			return err
		}
		if err := s.first(tx, row, s.kind.ParentColumn+" = ? AND id = ?", parentID, versionID); err != nil {
			return err
		}

		if status.Exclusive() {
			if err := tx.Model(new(T)).
				Where(s.kind.ParentColumn+" = ? AND status = ? AND id <> ?", parentID, status, versionID).
				Update("status", models.StatusDraft).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(new(T)).Where("id = ?", versionID).Update("status", status).Error; err != nil {
			return err
		}
		return s.first(tx, row, "id = ?", versionID)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Restore creates a new draft version whose content is copied from
// sourceID. Nothing is promoted.
func (s *Store[T, PT]) Restore(ctx context.Context, parentID, sourceID uuid.UUID, actor string) (PT, error) {
	return s.Create(ctx, parentID, "", actor, func(tx *gorm.DB, row PT) error {
		src := PT(new(T))
		if err := s.first(tx, src, s.kind.ParentColumn+" = ? AND id = ?", parentID, sourceID); err != nil {
			return err
		}
		row.CopyContentFrom((*T)(src))
		row.SetNote(fmt.Sprintf("Restored from v%d", src.GetNumber()))
		return nil
	})
}

// ResolveTag returns the version of parentID selected by tag. latest is the
// highest number whatever its status; a status tag selects its holder (the
// highest-numbered one for draft); a pinned tag selects that number.
func (s *Store[T, PT]) ResolveTag(ctx context.Context, parentID uuid.UUID, tag ref.Tag) (PT, error) {
	q := s.db.WithContext(ctx).Where(s.kind.ParentColumn+" = ?", parentID)

	switch tag.Kind {
	case ref.TagLatest:
		q = q.Order("version_number DESC")
	case ref.TagStatus:
		q = q.Where("status = ?", tag.Status).Order("version_number DESC")
	case ref.TagPinned:
		q = q.Where("version_number = ?", tag.Version)
	default:
		return nil, fmt.Errorf("unsupported tag kind %d", tag.Kind)
	}

	row := PT(new(T))
	if err := q.First(row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, tag)
		}
		return nil, err
	}
	return row, nil
}

// List returns every version of parentID, newest first.
func (s *Store[T, PT]) List(ctx context.Context, parentID uuid.UUID) ([]T, error) {
	var rows []T
	if err := s.db.WithContext(ctx).
		Where(s.kind.ParentColumn+" = ?", parentID).
		Order("version_number DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns one version of parentID by id.
func (s *Store[T, PT]) Get(ctx context.Context, parentID, versionID uuid.UUID) (PT, error) {
	row := PT(new(T))
	if err := s.first(s.db.WithContext(ctx), row, s.kind.ParentColumn+" = ? AND id = ?", parentID, versionID); err != nil {
		return nil, err
	}
	return row, nil
}

// GetByNumber returns version n of parentID.
func (s *Store[T, PT]) GetByNumber(ctx context.Context, parentID uuid.UUID, n int) (PT, error) {
	row := PT(new(T))
	if err := s.first(s.db.WithContext(ctx), row, s.kind.ParentColumn+" = ? AND version_number = ?", parentID, n); err != nil {
		return nil, err
	}
	return row, nil
}

// lockParent verifies the parent exists and, on Postgres, holds its row lock
// until the transaction ends. SQLite runs on one connection, so its write
// transactions are already serialized.
func (s *Store[T, PT]) lockParent(tx *gorm.DB, parentID uuid.UUID) error {
	q := tx.Table(s.kind.ParentTable).Where("id = ?", parentID)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var ids []string
	if err := q.Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, s.kind.Name, parentID)
	}
	return nil
}

// first loads the version matching query into row.
func (s *Store[T, PT]) first(tx *gorm.DB, row PT, query string, args ...interface{}) error {
	if err := tx.Where(query, args...).First(row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s version", ErrNotFound, s.kind.Name)
		}
		return err
	}
	return nil
}
