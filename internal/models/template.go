package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Template is a prompt template addressed as <app>/<slug>.
type Template struct {
	ID          uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	AppID       uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_template_slug" json:"app_id"`
	App         *App      `gorm:"foreignKey:AppID" json:"app,omitempty"`
	Slug        string    `gorm:"not null;uniqueIndex:idx_template_slug" json:"slug"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	ModelHint   string    `json:"model_hint,omitempty"` // Model the template was written for, e.g. "gpt-4o"
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName ensures GORM uses the "templates" table
func (Template) TableName() string {
	return "templates"
}

// BeforeCreate hook to generate UUID
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
