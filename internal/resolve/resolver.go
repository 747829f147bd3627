// Package resolve turns a reference and runtime parameters into
// parameter-substituted text.
package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/blueprint"
	"github.com/nebari-dev/refstore/internal/interpolate"
	"github.com/nebari-dev/refstore/internal/metrics"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/ref"
	"github.com/nebari-dev/refstore/internal/versioning"
	"gorm.io/gorm"
)

const (
	kindTemplate  = "template"
	kindBlueprint = "blueprint"

	auditTimeout = 5 * time.Second
)

// Deps are the collaborators of a Resolver. Metrics and Logger are optional.
type Deps struct {
	DB        *gorm.DB
	Templates *versioning.Store[models.TemplateVersion, *models.TemplateVersion]
	Versioner *blueprint.Versioner
	Tokenizer Tokenizer
	Audit     AuditSink
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Resolver is stateless; it only reads the store, and its one write, the
// audit record, is dispatched without waiting.
type Resolver struct {
	db        *gorm.DB
	templates *versioning.Store[models.TemplateVersion, *models.TemplateVersion]
	versioner *blueprint.Versioner
	tokenizer Tokenizer
	audit     AuditSink
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// dispatch runs audit delivery; tests replace it to wait for completion
	dispatch func(func())
}

// New creates a Resolver.
func New(d Deps) *Resolver {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		db:        d.DB,
		templates: d.Templates,
		versioner: d.Versioner,
		tokenizer: d.Tokenizer,
		audit:     d.Audit,
		metrics:   d.Metrics,
		logger:    logger,
		dispatch:  func(f func()) { go f() },
	}
}

// resolved is the version a reference landed on, whatever its kind.
type resolved struct {
	kind      string
	entityID  uuid.UUID
	name      string
	modelHint string
	versionID uuid.UUID
	number    int
	status    models.VersionStatus
	createdAt time.Time
	content   string
	compose   *blueprint.Composition
}

// Resolve runs the full pipeline: parse, app, entity, tag, content,
// interpolation, token count, ETag, audit. Every step runs even when the
// caller's ETag matches; only the body is skipped then.
func (r *Resolver) Resolve(ctx context.Context, caller Caller, req Request) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		code := "OK"
		var rerr *Error
		if errors.As(err, &rerr) {
			code = string(rerr.Code)
		}
		unresolved, notModified := 0, false
		if resp != nil {
			unresolved, notModified = len(resp.UnresolvedParams), resp.NotModified
		}
		r.metrics.RecordResolve(code, time.Since(start), unresolved, notModified)
	}()

	reference, perr := ref.Parse(req.Ref)
	if perr != nil {
		return nil, &Error{Code: CodeValidation, Message: perr.Error(), Err: perr}
	}

	app, rerr := r.findApp(ctx, caller, reference)
	if rerr != nil {
		return nil, rerr
	}

	target, rerr := r.findVersion(ctx, app, reference)
	if rerr != nil {
		return nil, rerr
	}

	out := interpolate.Interpolate(target.content, req.Params)
	tokens := 0
	if r.tokenizer != nil {
		tokens = r.tokenizer.Count(out.Text, target.modelHint)
	}
	etag := ETag(out.Text)
	latency := time.Since(start).Milliseconds()

	resp = &Response{
		Ref:              req.Ref,
		ResolvedRef:      reference.Pinned(target.number),
		VersionID:        target.versionID,
		ResolvedText:     out.Text,
		UnresolvedParams: out.Unresolved,
		TokenCount:       tokens,
		LatencyMs:        latency,
		ETag:             etag,
		NotModified:      ETagMatches(req.IfNoneMatch, etag),
	}
	if req.IncludeMetadata {
		resp.Metadata = target.metadata()
	}

	r.record(ctx, &models.ResolveLog{
		VersionID:    target.versionID,
		EntityKind:   target.kind,
		CredentialID: caller.CredentialID,
		WorkspaceID:  caller.WorkspaceID,
		Ref:          reference.String(),
		ParamsHash:   ParamsHash(req.Params),
		LatencyMs:    latency,
		CreatedAt:    time.Now(),
	})

	return resp, nil
}

func (r *Resolver) findApp(ctx context.Context, caller Caller, reference ref.Reference) (*models.App, *Error) {
	var app models.App
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND slug = ?", caller.WorkspaceID, reference.App).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(CodeNotFound, "app %q not found", reference.App)
	}
	if err != nil {
		return nil, internalError(err)
	}
	if caller.AppID != uuid.Nil && caller.AppID != app.ID {
		return nil, newError(CodeForbidden, "credential is not allowed to access app %q", reference.App)
	}
	return &app, nil
}

func (r *Resolver) findVersion(ctx context.Context, app *models.App, reference ref.Reference) (*resolved, *Error) {
	db := r.db.WithContext(ctx)
	entity := app.Slug + "/" + reference.Entity

	var tmpl models.Template
	err := db.Where("app_id = ? AND slug = ?", app.ID, reference.Entity).First(&tmpl).Error
	switch {
	case err == nil:
		v, err := r.templates.ResolveTag(ctx, tmpl.ID, reference.Tag)
		if err != nil {
			return nil, tagError(err, entity, reference.Tag)
		}
		return &resolved{
			kind:      kindTemplate,
			entityID:  tmpl.ID,
			name:      tmpl.Name,
			modelHint: tmpl.ModelHint,
			versionID: v.ID,
			number:    v.VersionNumber,
			status:    v.Status,
			createdAt: v.CreatedAt,
			content:   v.Content,
		}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, internalError(err)
	}

	var bp models.Blueprint
	err = db.Where("app_id = ? AND slug = ?", app.ID, reference.Entity).First(&bp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(CodeNotFound, "%s not found", entity)
	}
	if err != nil {
		return nil, internalError(err)
	}

	v, err := r.versioner.Versions().ResolveTag(ctx, bp.ID, reference.Tag)
	if err != nil {
		return nil, tagError(err, entity, reference.Tag)
	}
	composed, err := r.versioner.Compose(ctx, v)
	if err != nil {
		return nil, internalError(err)
	}
	if len(composed.Omitted) > 0 {
		r.logger.Warn("Blueprint version references missing blocks",
			"ref", reference.Pinned(v.VersionNumber),
			"omitted", len(composed.Omitted))
	}
	return &resolved{
		kind:      kindBlueprint,
		entityID:  bp.ID,
		name:      bp.Name,
		modelHint: bp.ModelHint,
		versionID: v.ID,
		number:    v.VersionNumber,
		status:    v.Status,
		createdAt: v.CreatedAt,
		content:   composed.Text,
		compose:   composed,
	}, nil
}

func tagError(err error, entity string, tag ref.Tag) *Error {
	if errors.Is(err, versioning.ErrNoMatch) {
		switch tag.Kind {
		case ref.TagPinned:
			return newError(CodeNotFound, "%s has no version %d", entity, tag.Version)
		case ref.TagStatus:
			return newError(CodeNotFound, "no version of %s is %s", entity, tag.Status)
		default:
			return newError(CodeNotFound, "%s has no versions", entity)
		}
	}
	return internalError(err)
}

func (t *resolved) metadata() *Metadata {
	md := &Metadata{
		EntityID:      t.entityID,
		EntityName:    t.name,
		EntityKind:    t.kind,
		VersionNumber: t.number,
		VersionStatus: t.status,
		ModelHint:     t.modelHint,
		CreatedAt:     t.createdAt,
	}
	if t.compose != nil {
		md.Blocks = t.compose.Blocks
		md.OmittedBlocks = t.compose.Omitted
	}
	return md
}

// record hands the audit record to the sink without waiting. Its outcome
// never reaches the caller.
func (r *Resolver) record(ctx context.Context, rec *models.ResolveLog) {
	if r.audit == nil {
		return
	}
	detached := context.WithoutCancel(ctx)

	r.dispatch(func() {
		defer func() {
			if p := recover(); p != nil {
				r.metrics.RecordAuditDropped()
				r.logger.Error("Panic recovered in resolve audit", "panic", p)
			}
		}()

		ctx, cancel := context.WithTimeout(detached, auditTimeout)
		defer cancel()
		if err := r.audit.Enqueue(ctx, rec); err != nil {
			r.metrics.RecordAuditDropped()
			r.logger.Debug("Resolve audit record dropped", "ref", rec.Ref, "error", err)
		}
	})
}

// ETag returns the strong entity tag of resolved text.
func ETag(text string) string {
	sum := sha256.Sum256([]byte(text))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// ETagMatches reports whether an If-None-Match header value matches etag.
// The header may list several tags; weak tags compare by value.
func ETagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// ParamsHash fingerprints parameters for the audit log without storing
// their values. encoding/json writes map keys sorted, so equal maps hash
// equally.
func ParamsHash(params map[string]string) string {
	if len(params) == 0 {
		params = map[string]string{}
	}
	data, _ := json.Marshal(params)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
