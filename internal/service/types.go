package service

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Scope is what a verified credential allows. AppID is uuid.Nil for
// credentials valid for every app of the workspace.
type Scope struct {
	WorkspaceID uuid.UUID
	AppID       uuid.UUID
	Actor       string // Credential id, recorded in audit logs and created_by
}

// AppScoped reports whether the credential is limited to a single app.
func (s Scope) AppScoped() bool {
	return s.AppID != uuid.Nil
}

// CreateAppRequest holds parameters for creating an app.
type CreateAppRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CreateTemplateRequest holds parameters for creating a template. A non-empty
// Content also saves version 1.
type CreateTemplateRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ModelHint   string `json:"model_hint"`
	Content     string `json:"content"`
	Note        string `json:"note"`
}

// UpdateEntityRequest changes the unversioned fields of a template or
// blueprint. Nil fields are left alone.
type UpdateEntityRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ModelHint   *string `json:"model_hint"`
}

// CreateVersionRequest holds the content of a new template version.
type CreateVersionRequest struct {
	Content string `json:"content"`
	Note    string `json:"note"`
}

// PromoteRequest names the target status of a promotion.
type PromoteRequest struct {
	Status string `json:"status"`
}

// CreateBlueprintRequest holds parameters for creating a blueprint.
type CreateBlueprintRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ModelHint   string `json:"model_hint"`
}

// CreateBlockRequest holds parameters for adding a block to a blueprint. A
// non-empty Content also saves block version 1.
type CreateBlockRequest struct {
	Slug     string          `json:"slug"`
	Type     string          `json:"type"`
	Position *int            `json:"position"` // Defaults to after the last block
	Content  string          `json:"content"`
	Config   json.RawMessage `json:"config" swaggertype:"object"`
	Note     string          `json:"note"`
}

// UpdateBlockRequest changes the live, unversioned state of a block.
type UpdateBlockRequest struct {
	Type     *string `json:"type"`
	Position *int    `json:"position"`
	Disabled *bool   `json:"disabled"`
}

// CreateBlockVersionRequest holds the content of a new block version.
type CreateBlockVersionRequest struct {
	Content string          `json:"content"`
	Config  json.RawMessage `json:"config" swaggertype:"object"`
	Note    string          `json:"note"`
}

// SnapshotRequest holds the note of a new blueprint version.
type SnapshotRequest struct {
	Note string `json:"note"`
}
