package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// App groups templates and blueprints inside a workspace. Workspaces are
// owned by the credential issuer; only their ids are stored here.
type App struct {
	ID          uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_app_slug" json:"workspace_id"`
	Slug        string    `gorm:"not null;uniqueIndex:idx_app_slug" json:"slug"`
	Name        string    `gorm:"not null" json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName ensures GORM uses the "apps" table
func (App) TableName() string {
	return "apps"
}

// BeforeCreate hook to generate UUID
func (a *App) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
