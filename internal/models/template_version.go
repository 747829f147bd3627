package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemplateVersion is an immutable revision of a template's content.
// Only Status changes after creation.
type TemplateVersion struct {
	ID         uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	TemplateID uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_template_version" json:"template_id"`

	// Contiguous per template, starting at 1
	VersionNumber int           `gorm:"not null;uniqueIndex:idx_template_version" json:"version"`
	Status        VersionStatus `gorm:"not null;default:'draft';index" json:"status"`

	Content   string    `gorm:"type:text;not null" json:"content"`
	Note      string    `gorm:"type:text" json:"note,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"` // Credential that saved the version
	CreatedAt time.Time `json:"created_at"`
}

// TableName ensures GORM uses the "template_versions" table
func (TemplateVersion) TableName() string {
	return "template_versions"
}

// BeforeCreate hook to generate UUID
func (v *TemplateVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (v *TemplateVersion) GetID() uuid.UUID         { return v.ID }
func (v *TemplateVersion) GetNumber() int           { return v.VersionNumber }
func (v *TemplateVersion) GetStatus() VersionStatus { return v.Status }
func (v *TemplateVersion) SetNote(note string)      { v.Note = note }
func (v *TemplateVersion) SetCreatedBy(by string)   { v.CreatedBy = by }

// Init assigns the parent and number of a version about to be inserted.
func (v *TemplateVersion) Init(parentID uuid.UUID, number int) {
	v.TemplateID = parentID
	v.VersionNumber = number
	v.Status = StatusDraft
}

// CopyContentFrom copies the versioned content fields of src.
func (v *TemplateVersion) CopyContentFrom(src *TemplateVersion) {
	v.Content = src.Content
}
