package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BlockType classifies what a block contributes to a composed prompt.
type BlockType string

const (
	BlockTypeSystem      BlockType = "system"
	BlockTypeInstruction BlockType = "instruction"
	BlockTypeContext     BlockType = "context"
	BlockTypeExample     BlockType = "example"
	BlockTypeOutput      BlockType = "output"
)

// Block is one ordered piece of a blueprint. Its content lives in
// BlockVersion rows; position and flags are live, unversioned state.
type Block struct {
	ID          uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	BlueprintID uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_block_slug" json:"blueprint_id"`
	Slug        string    `gorm:"not null;uniqueIndex:idx_block_slug" json:"slug"`
	Type        BlockType `gorm:"not null;default:'instruction'" json:"type"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	Disabled    bool      `gorm:"not null;default:false" json:"disabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName ensures GORM uses the "blocks" table
func (Block) TableName() string {
	return "blocks"
}

// BeforeCreate hook to generate UUID
func (b *Block) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BlockVersion is an immutable revision of a block's content.
type BlockVersion struct {
	ID            uuid.UUID      `gorm:"type:text;primary_key" json:"id"`
	BlockID       uuid.UUID      `gorm:"type:text;not null;uniqueIndex:idx_block_version" json:"block_id"`
	VersionNumber int            `gorm:"not null;uniqueIndex:idx_block_version" json:"version"`
	Status        VersionStatus  `gorm:"not null;default:'draft'" json:"status"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	Config        datatypes.JSON `json:"config,omitempty"` // Free-form block settings, e.g. rendering hints
	Note          string         `gorm:"type:text" json:"note,omitempty"`
	CreatedBy     string         `json:"created_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TableName ensures GORM uses the "block_versions" table
func (BlockVersion) TableName() string {
	return "block_versions"
}

// BeforeCreate hook to generate UUID
func (v *BlockVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (v *BlockVersion) GetID() uuid.UUID         { return v.ID }
func (v *BlockVersion) GetNumber() int           { return v.VersionNumber }
func (v *BlockVersion) GetStatus() VersionStatus { return v.Status }
func (v *BlockVersion) SetNote(note string)      { v.Note = note }
func (v *BlockVersion) SetCreatedBy(by string)   { v.CreatedBy = by }

// Init assigns the parent and number of a version about to be inserted.
func (v *BlockVersion) Init(parentID uuid.UUID, number int) {
	v.BlockID = parentID
	v.VersionNumber = number
	v.Status = StatusDraft
}

// CopyContentFrom copies content and config of src.
func (v *BlockVersion) CopyContentFrom(src *BlockVersion) {
	v.Content = src.Content
	if src.Config != nil {
		v.Config = append(datatypes.JSON(nil), src.Config...)
	}
}
