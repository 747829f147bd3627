package resolve

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/blueprint"
	"github.com/nebari-dev/refstore/internal/models"
)

// Caller is the verified identity behind a resolve request.
type Caller struct {
	WorkspaceID  uuid.UUID
	AppID        uuid.UUID // uuid.Nil unless the credential is app-scoped
	CredentialID string
}

// Request is one resolve call.
type Request struct {
	Ref             string            `json:"ref"`
	Params          map[string]string `json:"params,omitempty"`
	IncludeMetadata bool              `json:"-"`
	IfNoneMatch     string            `json:"-"`
}

// Metadata describes what a reference resolved to.
type Metadata struct {
	EntityID      uuid.UUID                 `json:"entity_id"`
	EntityName    string                    `json:"entity_name"`
	EntityKind    string                    `json:"entity_kind"`
	VersionNumber int                       `json:"version"`
	VersionStatus models.VersionStatus      `json:"status"`
	ModelHint     string                    `json:"model_hint,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	Blocks        []blueprint.ComposedBlock `json:"blocks,omitempty"`
	OmittedBlocks []blueprint.OmittedBlock  `json:"omitted_blocks,omitempty"`
}

// Response is a successful resolve. When NotModified is set the caller
// already holds the text identified by ETag and no body is sent.
type Response struct {
	Ref              string    `json:"ref"`
	ResolvedRef      string    `json:"resolved_ref"`
	VersionID        uuid.UUID `json:"version_id"`
	ResolvedText     string    `json:"resolved_text"`
	UnresolvedParams []string  `json:"unresolved_params"`
	TokenCount       int       `json:"token_count"`
	LatencyMs        int64     `json:"latency_ms"`
	Metadata         *Metadata `json:"metadata,omitempty"`

	ETag        string `json:"-"`
	NotModified bool   `json:"-"`
}

// Tokenizer counts tokens of resolved text for a model.
type Tokenizer interface {
	Count(text, modelHint string) int
}

// AuditSink accepts resolve audit records. Implementations must not block
// for long; failures are discarded by the resolver.
type AuditSink interface {
	Enqueue(ctx context.Context, rec *models.ResolveLog) error
}
