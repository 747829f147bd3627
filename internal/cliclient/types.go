package cliclient

import (
	"encoding/json"
	"time"
)

// App represents an app.
type App struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Template represents a template.
type Template struct {
	ID          string    `json:"id"`
	AppID       string    `json:"app_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ModelHint   string    `json:"model_hint"`
	CreatedAt   time.Time `json:"created_at"`
}

// Version is a template, block or blueprint version.
type Version struct {
	ID            string          `json:"id"`
	VersionNumber int             `json:"version"`
	Status        string          `json:"status"`
	Content       string          `json:"content,omitempty"`
	Config        json.RawMessage `json:"config,omitempty"`
	Snapshot      map[string]int  `json:"snapshot,omitempty"`
	Note          string          `json:"note"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Blueprint represents a blueprint with its blocks.
type Blueprint struct {
	ID          string    `json:"id"`
	AppID       string    `json:"app_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ModelHint   string    `json:"model_hint"`
	Blocks      []Block   `json:"blocks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Block represents a blueprint block.
type Block struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Type     string `json:"type"`
	Position int    `json:"position"`
	Disabled bool   `json:"disabled"`
}

// CreateAppRequest represents a request to create an app.
type CreateAppRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CreateTemplateRequest represents a request to create a template.
type CreateTemplateRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ModelHint   string `json:"model_hint,omitempty"`
	Content     string `json:"content,omitempty"`
	Note        string `json:"note,omitempty"`
}

// CreateVersionRequest represents new version content.
type CreateVersionRequest struct {
	Content string          `json:"content"`
	Config  json.RawMessage `json:"config,omitempty"`
	Note    string          `json:"note,omitempty"`
}

// ResolveRequest represents a resolve call.
type ResolveRequest struct {
	Ref     string            `json:"ref"`
	Params  map[string]string `json:"params,omitempty"`
	Options *ResolveOptions   `json:"options,omitempty"`
}

// ResolveOptions tune the resolve response.
type ResolveOptions struct {
	IncludeMetadata bool `json:"include_metadata"`
}

// ResolveResponse represents a resolved reference.
type ResolveResponse struct {
	Ref              string          `json:"ref"`
	ResolvedRef      string          `json:"resolved_ref"`
	VersionID        string          `json:"version_id"`
	ResolvedText     string          `json:"resolved_text"`
	UnresolvedParams []string        `json:"unresolved_params"`
	TokenCount       int             `json:"token_count"`
	LatencyMs        int64           `json:"latency_ms"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

// IssueTokenRequest represents a request for a new credential.
type IssueTokenRequest struct {
	Role     string `json:"role,omitempty"`
	App      string `json:"app,omitempty"`
	TTLHours int    `json:"ttl_hours,omitempty"`
}

// IssueTokenResponse carries a new credential.
type IssueTokenResponse struct {
	Token      string `json:"token"`
	Credential struct {
		ID          string `json:"id"`
		WorkspaceID string `json:"workspace_id"`
		AppID       string `json:"app_id"`
		Plan        string `json:"plan"`
		Role        string `json:"role"`
	} `json:"credential"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ServerVersion represents the server's version report.
type ServerVersion struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

// DiffEntry is one block's change between two blueprint versions.
type DiffEntry struct {
	BlockID  string `json:"block_id"`
	Kind     string `json:"kind"`
	From     int    `json:"from_version,omitempty"`
	To       int    `json:"to_version,omitempty"`
	Slug     string `json:"slug,omitempty"`
	Position *int   `json:"position,omitempty"`
}

// CreateTemplateResponse is a new template with its first version.
type CreateTemplateResponse struct {
	Template
	Version *Version `json:"version,omitempty"`
}
