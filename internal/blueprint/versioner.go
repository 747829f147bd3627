// Package blueprint versions blueprints as snapshots of their blocks'
// version numbers and composes snapshot content for resolution.
package blueprint

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/versioning"
	"gorm.io/gorm"
)

// VersionStore is the version store for blueprint snapshots.
type VersionStore = versioning.Store[models.BlueprintVersion, *models.BlueprintVersion]

// Versioner creates blueprint snapshots and reads them back.
type Versioner struct {
	db       *gorm.DB
	versions *VersionStore
}

// NewVersioner creates a Versioner over db.
func NewVersioner(db *gorm.DB) *Versioner {
	return &Versioner{
		db:       db,
		versions: versioning.New[models.BlueprintVersion](db, versioning.BlueprintKind),
	}
}

// Versions exposes the underlying store for promote, restore and reads.
func (v *Versioner) Versions() *VersionStore {
	return v.versions
}

// CreateVersion records the latest version number of every block currently
// in the blueprint as a new draft blueprint version. Blocks without any
// version are left out of the snapshot.
func (v *Versioner) CreateVersion(ctx context.Context, blueprintID uuid.UUID, note, actor string) (*models.BlueprintVersion, error) {
	return v.versions.Create(ctx, blueprintID, note, actor, func(tx *gorm.DB, row *models.BlueprintVersion) error {
		snap, err := currentSnapshot(tx, blueprintID)
		if err != nil {
			return err
		}
		row.Snapshot = snap
		return nil
	})
}

func currentSnapshot(tx *gorm.DB, blueprintID uuid.UUID) (models.Snapshot, error) {
	var latest []struct {
		BlockID       string
		VersionNumber int
	}
	err := tx.Model(&models.BlockVersion{}).
		Select("block_versions.block_id AS block_id, MAX(block_versions.version_number) AS version_number").
		Joins("JOIN blocks ON blocks.id = block_versions.block_id").
		Where("blocks.blueprint_id = ?", blueprintID).
		Group("block_versions.block_id").
		Scan(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("read latest block versions: %w", err)
	}

	snap := make(models.Snapshot, len(latest))
	for _, l := range latest {
		snap[l.BlockID] = l.VersionNumber
	}
	return snap, nil
}

// DiffVersions diffs two versions of a blueprint by number.
func (v *Versioner) DiffVersions(ctx context.Context, blueprintID uuid.UUID, from, to int) ([]Change, error) {
	fromVersion, err := v.versions.GetByNumber(ctx, blueprintID, from)
	if err != nil {
		return nil, err
	}
	toVersion, err := v.versions.GetByNumber(ctx, blueprintID, to)
	if err != nil {
		return nil, err
	}
	return Diff(fromVersion.Snapshot, toVersion.Snapshot), nil
}

// OmitReason says why a snapshotted block was left out of composed text.
type OmitReason string

const (
	OmitBlockDeleted   OmitReason = "block_deleted"
	OmitVersionMissing OmitReason = "version_missing"
)

// ComposedBlock is one block that contributed to composed text.
type ComposedBlock struct {
	BlockID string           `json:"block_id"`
	Slug    string           `json:"slug"`
	Type    models.BlockType `json:"type"`
	Version int              `json:"version"`
}

// OmittedBlock is a snapshot entry that could not be composed.
type OmittedBlock struct {
	BlockID string     `json:"block_id"`
	Version int        `json:"version"`
	Reason  OmitReason `json:"reason"`
}

// Composition is the text of one blueprint version.
type Composition struct {
	Text    string
	Blocks  []ComposedBlock
	Omitted []OmittedBlock
}

// Compose builds the text of a blueprint version from the block versions
// its snapshot names. Blocks are ordered by their live position and joined
// by a blank line. Disabled blocks are skipped. Entries whose block was
// deleted, or whose snapshotted block version no longer exists, are omitted
// and reported.
func (v *Versioner) Compose(ctx context.Context, version *models.BlueprintVersion) (*Composition, error) {
	db := v.db.WithContext(ctx)

	var blocks []models.Block
	if err := db.Where("blueprint_id = ?", version.BlueprintID).
		Order("position ASC, slug ASC").
		Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(version.Snapshot))
	live := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		live[b.ID.String()] = true
		if _, ok := version.Snapshot[b.ID.String()]; ok {
			ids = append(ids, b.ID)
		}
	}

	content := map[string]string{}
	if len(ids) > 0 {
		var candidates []models.BlockVersion
		if err := db.Where("block_id IN ?", ids).Find(&candidates).Error; err != nil {
			return nil, fmt.Errorf("load block versions: %w", err)
		}
		for _, bv := range candidates {
			if version.Snapshot[bv.BlockID.String()] == bv.VersionNumber {
				content[bv.BlockID.String()] = bv.Content
			}
		}
	}

	out := &Composition{Blocks: []ComposedBlock{}, Omitted: []OmittedBlock{}}
	var parts []string
	for _, b := range blocks {
		id := b.ID.String()
		n, ok := version.Snapshot[id]
		if !ok || b.Disabled {
			continue
		}
		text, ok := content[id]
		if !ok {
			out.Omitted = append(out.Omitted, OmittedBlock{BlockID: id, Version: n, Reason: OmitVersionMissing})
			continue
		}
		parts = append(parts, text)
		out.Blocks = append(out.Blocks, ComposedBlock{BlockID: id, Slug: b.Slug, Type: b.Type, Version: n})
	}

	deleted := make([]string, 0)
	for id := range version.Snapshot {
		if !live[id] {
			deleted = append(deleted, id)
		}
	}
	sort.Strings(deleted)
	for _, id := range deleted {
		out.Omitted = append(out.Omitted, OmittedBlock{BlockID: id, Version: version.Snapshot[id], Reason: OmitBlockDeleted})
	}

	out.Text = strings.Join(parts, "\n\n")
	return out, nil
}
