package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Blueprint is a composite of ordered content blocks, versioned as a whole
// through snapshots of its blocks' version numbers.
type Blueprint struct {
	ID          uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	AppID       uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_blueprint_slug" json:"app_id"`
	App         *App      `gorm:"foreignKey:AppID" json:"app,omitempty"`
	Slug        string    `gorm:"not null;uniqueIndex:idx_blueprint_slug" json:"slug"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	ModelHint   string    `json:"model_hint,omitempty"`
	Blocks      []Block   `gorm:"foreignKey:BlueprintID" json:"blocks,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName ensures GORM uses the "blueprints" table
func (Blueprint) TableName() string {
	return "blueprints"
}

// BeforeCreate hook to generate UUID
func (b *Blueprint) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Snapshot maps block ids to the block version number recorded at snapshot
// time. Entries are weak references and may outlive their blocks.
type Snapshot map[string]int

// BlueprintVersion records which version of every block made up a blueprint
// at one point in time.
type BlueprintVersion struct {
	ID            uuid.UUID     `gorm:"type:text;primary_key" json:"id"`
	BlueprintID   uuid.UUID     `gorm:"type:text;not null;uniqueIndex:idx_blueprint_version" json:"blueprint_id"`
	VersionNumber int           `gorm:"not null;uniqueIndex:idx_blueprint_version" json:"version"`
	Status        VersionStatus `gorm:"not null;default:'draft';index" json:"status"`
	Snapshot      Snapshot      `gorm:"type:text;serializer:json" json:"snapshot"`
	Note          string        `gorm:"type:text" json:"note,omitempty"`
	CreatedBy     string        `json:"created_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// TableName ensures GORM uses the "blueprint_versions" table
func (BlueprintVersion) TableName() string {
	return "blueprint_versions"
}

// BeforeCreate hook to generate UUID
func (v *BlueprintVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (v *BlueprintVersion) GetID() uuid.UUID         { return v.ID }
func (v *BlueprintVersion) GetNumber() int           { return v.VersionNumber }
func (v *BlueprintVersion) GetStatus() VersionStatus { return v.Status }
func (v *BlueprintVersion) SetNote(note string)      { v.Note = note }
func (v *BlueprintVersion) SetCreatedBy(by string)   { v.CreatedBy = by }

// Init assigns the parent and number of a version about to be inserted.
func (v *BlueprintVersion) Init(parentID uuid.UUID, number int) {
	v.BlueprintID = parentID
	v.VersionNumber = number
	v.Status = StatusDraft
}

// CopyContentFrom copies the snapshot of src. Restoring a blueprint version
// restores its block references, not block content.
func (v *BlueprintVersion) CopyContentFrom(src *BlueprintVersion) {
	v.Snapshot = make(Snapshot, len(src.Snapshot))
	for id, n := range src.Snapshot {
		v.Snapshot[id] = n
	}
}
