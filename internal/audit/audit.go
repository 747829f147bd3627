package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/models"
	"gorm.io/gorm"
)

// LogAction records an audit log entry for a management action
func LogAction(db *gorm.DB, workspaceID uuid.UUID, actor, action, resource string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	log := models.AuditLog{
		WorkspaceID: workspaceID,
		Actor:       actor,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now(),
	}

	return db.Create(&log).Error
}

// MaxListLimit caps how many entries List returns
const MaxListLimit = 500

// List returns the newest audit entries of a workspace, optionally filtered
// by action.
func List(ctx context.Context, db *gorm.DB, workspaceID uuid.UUID, action string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	q := db.WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if action != "" {
		q = q.Where("action = ?", action)
	}

	var logs []models.AuditLog
	err := q.Order("timestamp DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// Audit actions constants
const (
	ActionCreateApp              = "create_app"
	ActionDeleteApp              = "delete_app"
	ActionCreateTemplate         = "create_template"
	ActionUpdateTemplate         = "update_template"
	ActionDeleteTemplate         = "delete_template"
	ActionCreateTemplateVersion  = "create_template_version"
	ActionPromoteTemplateVersion = "promote_template_version"
	ActionRestoreTemplateVersion = "restore_template_version"
	ActionCreateBlueprint        = "create_blueprint"
	ActionUpdateBlueprint        = "update_blueprint"
	ActionDeleteBlueprint        = "delete_blueprint"
	ActionCreateBlock            = "create_block"
	ActionUpdateBlock            = "update_block"
	ActionDeleteBlock            = "delete_block"
	ActionCreateBlockVersion     = "create_block_version"
	ActionPromoteBlockVersion    = "promote_block_version"
	ActionRestoreBlockVersion    = "restore_block_version"
	ActionSnapshotBlueprint      = "snapshot_blueprint"
	ActionPromoteBlueprint       = "promote_blueprint_version"
	ActionRestoreBlueprint       = "restore_blueprint_version"
	ActionIssueToken             = "issue_token"
)
