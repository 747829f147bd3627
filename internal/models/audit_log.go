package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog represents a record of management actions for compliance
type AuditLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:text;index" json:"workspace_id"`
	Actor       string    `gorm:"index" json:"actor"`            // Credential id
	Action      string    `gorm:"not null" json:"action"`        // e.g., "promote_version", "create_template"
	Resource    string    `gorm:"not null" json:"resource"`      // e.g., "template:123", "blueprint:456"
	DetailsJSON string    `gorm:"type:text" json:"details_json"` // Additional context in JSON
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
}

// ResolveLog is the audit record of one resolve request. Parameter values
// are never stored, only a hash of them.
type ResolveLog struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	VersionID    uuid.UUID `gorm:"type:text;index" json:"version_id"`
	EntityKind   string    `json:"entity_kind"`
	CredentialID string    `gorm:"index" json:"credential_id"`
	WorkspaceID  uuid.UUID `gorm:"type:text;index" json:"workspace_id"`
	Ref          string    `json:"ref"`
	ParamsHash   string    `json:"params_hash"`
	LatencyMs    int64     `json:"latency_ms"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
