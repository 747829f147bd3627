package resolve

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/blueprint"
	"github.com/nebari-dev/refstore/internal/db/dbtest"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/tokenizer"
	"github.com/nebari-dev/refstore/internal/versioning"
	"gorm.io/gorm"
)

type fakeSink struct {
	mu      sync.Mutex
	records []*models.ResolveLog
	err     error
	panics  bool
}

func (s *fakeSink) Enqueue(ctx context.Context, rec *models.ResolveLog) error {
	if s.panics {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fixture struct {
	db        *gorm.DB
	resolver  *Resolver
	sink      *fakeSink
	templates *versioning.Store[models.TemplateVersion, *models.TemplateVersion]
	versioner *blueprint.Versioner
	app       models.App
	caller    Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{
		db:        db,
		sink:      &fakeSink{},
		templates: versioning.New[models.TemplateVersion](db, versioning.TemplateKind),
		versioner: blueprint.NewVersioner(db),
	}
	f.resolver = New(Deps{
		DB:        db,
		Templates: f.templates,
		Versioner: f.versioner,
		Tokenizer: tokenizer.Estimator{},
		Audit:     f.sink,
	})
	// Run audit delivery inline so assertions can see it
	f.resolver.dispatch = func(fn func()) { fn() }

	f.app = models.App{WorkspaceID: uuid.New(), Slug: "myapp", Name: "My App"}
	if err := db.Create(&f.app).Error; err != nil {
		t.Fatalf("create app: %v", err)
	}
	f.caller = Caller{WorkspaceID: f.app.WorkspaceID, CredentialID: "cred-1"}
	return f
}

func (f *fixture) template(t *testing.T, slug string, contents ...string) (models.Template, []*models.TemplateVersion) {
	t.Helper()
	tmpl := models.Template{AppID: f.app.ID, Slug: slug, Name: strings.ToUpper(slug), ModelHint: "gpt-4o"}
	if err := f.db.Create(&tmpl).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}
	var versions []*models.TemplateVersion
	for _, c := range contents {
		c := c
		v, err := f.templates.Create(context.Background(), tmpl.ID, "", "tester", func(tx *gorm.DB, v *models.TemplateVersion) error {
			v.Content = c
			return nil
		})
		if err != nil {
			t.Fatalf("create version: %v", err)
		}
		versions = append(versions, v)
	}
	return tmpl, versions
}

func expectCode(t *testing.T, err error, code Code) *Error {
	t.Helper()
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error with %s, got %T: %v", code, err, err)
	}
	if rerr.Code != code {
		t.Fatalf("code = %s, want %s (%s)", rerr.Code, code, rerr.Message)
	}
	return rerr
}

func TestResolve_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tmpl, versions := f.template(t, "greet", "Hi {{name}}")
	if _, err := f.templates.Promote(ctx, tmpl.ID, versions[0].ID, models.StatusStable); err != nil {
		t.Fatal(err)
	}

	resp, err := f.resolver.Resolve(ctx, f.caller, Request{
		Ref:    "myapp/greet@stable",
		Params: map[string]string{"name": "Bo"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.ResolvedText != "Hi Bo" {
		t.Errorf("resolved_text = %q, want %q", resp.ResolvedText, "Hi Bo")
	}
	if resp.ResolvedRef != "myapp/greet@v1" {
		t.Errorf("resolved_ref = %q, want myapp/greet@v1", resp.ResolvedRef)
	}
	if resp.Ref != "myapp/greet@stable" {
		t.Errorf("ref = %q", resp.Ref)
	}
	if resp.UnresolvedParams == nil || len(resp.UnresolvedParams) != 0 {
		t.Errorf("unresolved_params = %#v, want empty list", resp.UnresolvedParams)
	}
	if resp.VersionID != versions[0].ID {
		t.Errorf("version_id = %s, want %s", resp.VersionID, versions[0].ID)
	}
	if resp.TokenCount != 2 {
		t.Errorf("token_count = %d, want 2", resp.TokenCount)
	}
	if resp.ETag != ETag("Hi Bo") || resp.NotModified {
		t.Errorf("etag = %s, not_modified = %v", resp.ETag, resp.NotModified)
	}
	if resp.Metadata != nil {
		t.Error("metadata returned without being requested")
	}

	if f.sink.count() != 1 {
		t.Fatalf("audit records = %d, want 1", f.sink.count())
	}
	rec := f.sink.records[0]
	if rec.VersionID != versions[0].ID || rec.CredentialID != "cred-1" || rec.EntityKind != "template" {
		t.Errorf("audit record = %+v", rec)
	}
	if rec.ParamsHash != ParamsHash(map[string]string{"name": "Bo"}) || strings.Contains(rec.ParamsHash, "Bo") {
		t.Errorf("params hash = %q", rec.ParamsHash)
	}
}

func TestResolve_DefaultTagIsLatest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tmpl, versions := f.template(t, "greet", "one", "two")
	if _, err := f.templates.Promote(ctx, tmpl.ID, versions[0].ID, models.StatusStable); err != nil {
		t.Fatal(err)
	}

	resp, err := f.resolver.Resolve(ctx, f.caller, Request{Ref: "myapp/greet"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ResolvedRef != "myapp/greet@v2" || resp.ResolvedText != "two" {
		t.Errorf("got %s %q, want latest v2", resp.ResolvedRef, resp.ResolvedText)
	}
	if resp.Ref != "myapp/greet" {
		t.Errorf("ref = %q, want the caller's input", resp.Ref)
	}
}

func TestResolve_TagMissIsDistinctFromMissingEntity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.template(t, "greet", "draft only")

	tagErr := expectCode(t, mustFail(f.resolver.Resolve(ctx, f.caller, Request{Ref: "myapp/greet@stable"})), CodeNotFound)
	entityErr := expectCode(t, mustFail(f.resolver.Resolve(ctx, f.caller, Request{Ref: "myapp/nope@stable"})), CodeNotFound)

	if tagErr.Message == entityErr.Message {
		t.Errorf("tag miss and missing entity share a message: %q", tagErr.Message)
	}
	if !strings.Contains(tagErr.Message, "stable") {
		t.Errorf("tag miss message does not name the tag: %q", tagErr.Message)
	}

	pinned := expectCode(t, mustFail(f.resolver.Resolve(ctx, f.caller, Request{Ref: "myapp/greet@v9"})), CodeNotFound)
	if !strings.Contains(pinned.Message, "9") {
		t.Errorf("pinned miss message = %q", pinned.Message)
	}
	if f.sink.count() != 0 {
		t.Errorf("failed resolves wrote %d audit records", f.sink.count())
	}
}

func TestResolve_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.template(t, "greet", "x")

	other := models.App{WorkspaceID: f.app.WorkspaceID, Slug: "other", Name: "Other"}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		caller Caller
		ref    string
		code   Code
	}{
		{"malformed reference", f.caller, "myapp", CodeValidation},
		{"bad tag", f.caller, "myapp/greet@v0", CodeValidation},
		{"unknown app", f.caller, "ghost/greet", CodeNotFound},
		{"app of another workspace", Caller{WorkspaceID: uuid.New()}, "myapp/greet", CodeNotFound},
		{"app-scoped credential", Caller{WorkspaceID: f.app.WorkspaceID, AppID: other.ID}, "myapp/greet", CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.resolver.Resolve(ctx, tt.caller, Request{Ref: tt.ref})
			expectCode(t, err, tt.code)
		})
	}

	scoped := Caller{WorkspaceID: f.app.WorkspaceID, AppID: f.app.ID}
	if _, err := f.resolver.Resolve(ctx, scoped, Request{Ref: "myapp/greet"}); err != nil {
		t.Errorf("credential scoped to the right app: %v", err)
	}
}

func TestResolve_NotModifiedStillDoesTheWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.template(t, "greet", "Hi {{name}}")

	first, err := f.resolver.Resolve(ctx, f.caller, Request{Ref: "myapp/greet", Params: map[string]string{"name": "Bo"}})
	if err != nil {
		t.Fatal(err)
	}

	second, err := f.resolver.Resolve(ctx, f.caller, Request{
		Ref:         "myapp/greet",
		Params:      map[string]string{"name": "Bo"},
		IfNoneMatch: first.ETag,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !second.NotModified || second.ETag != first.ETag {
		t.Errorf("second resolve not_modified = %v etag = %s", second.NotModified, second.ETag)
	}
	if f.sink.count() != 2 {
		t.Errorf("audit records = %d, want 2", f.sink.count())
	}

	changed, err := f.resolver.Resolve(ctx, f.caller, Request{
		Ref:         "myapp/greet",
		Params:      map[string]string{"name": "Al"},
		IfNoneMatch: first.ETag,
	})
	if err != nil {
		t.Fatal(err)
	}
	if changed.NotModified {
		t.Error("different params matched the old ETag")
	}
}

func TestResolve_AuditFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.template(t, "greet", "hello")

	f.sink.err = errors.New("queue is full")
	if _, err := f.resolver.Resolve(context.Background(), f.caller, Request{Ref: "myapp/greet"}); err != nil {
		t.Errorf("audit error leaked: %v", err)
	}

	f.sink.panics = true
	if _, err := f.resolver.Resolve(context.Background(), f.caller, Request{Ref: "myapp/greet"}); err != nil {
		t.Errorf("audit panic leaked: %v", err)
	}
}

type blockingSink struct {
	release chan struct{}
	done    chan struct{}
}

func (s *blockingSink) Enqueue(ctx context.Context, rec *models.ResolveLog) error {
	<-s.release
	close(s.done)
	return nil
}

func TestResolve_AuditDoesNotBlockResponse(t *testing.T) {
	f := newFixture(t)
	f.template(t, "greet", "hello")

	sink := &blockingSink{release: make(chan struct{}), done: make(chan struct{})}
	r := New(Deps{DB: f.db, Templates: f.templates, Versioner: f.versioner, Audit: sink})

	finished := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), f.caller, Request{Ref: "myapp/greet"})
		finished <- err
	}()

	select {
	case err := <-finished:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("resolve waited for the audit sink")
	}

	close(sink.release)
	select {
	case <-sink.done:
	case <-time.After(5 * time.Second):
		t.Fatal("audit record was never delivered")
	}
}

func TestResolve_Blueprint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bp := models.Blueprint{AppID: f.app.ID, Slug: "support", Name: "Support", ModelHint: "claude-3"}
	if err := f.db.Create(&bp).Error; err != nil {
		t.Fatal(err)
	}
	blocks := versioning.New[models.BlockVersion](f.db, versioning.BlockKind)
	for i, content := range []string{"You are {{role}}.", "Answer {{question}}"} {
		b := models.Block{BlueprintID: bp.ID, Slug: []string{"system", "task"}[i], Position: i}
		if err := f.db.Create(&b).Error; err != nil {
			t.Fatal(err)
		}
		content := content
		if _, err := blocks.Create(ctx, b.ID, "", "tester", func(tx *gorm.DB, v *models.BlockVersion) error {
			v.Content = content
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	v, err := f.versioner.CreateVersion(ctx, bp.ID, "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.versioner.Versions().Promote(ctx, bp.ID, v.ID, models.StatusActive); err != nil {
		t.Fatal(err)
	}

	resp, err := f.resolver.Resolve(ctx, f.caller, Request{
		Ref:             "myapp/support@active",
		Params:          map[string]string{"role": "helpful"},
		IncludeMetadata: true,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := "You are helpful.\n\nAnswer {{question}}"; resp.ResolvedText != want {
		t.Errorf("resolved_text = %q, want %q", resp.ResolvedText, want)
	}
	if len(resp.UnresolvedParams) != 1 || resp.UnresolvedParams[0] != "question" {
		t.Errorf("unresolved = %v", resp.UnresolvedParams)
	}
	md := resp.Metadata
	if md == nil || md.EntityKind != "blueprint" || md.VersionNumber != 1 || md.VersionStatus != models.StatusActive || md.ModelHint != "claude-3" || len(md.Blocks) != 2 {
		t.Errorf("metadata = %+v", md)
	}
	if f.sink.records[0].EntityKind != "blueprint" {
		t.Errorf("audit entity kind = %q", f.sink.records[0].EntityKind)
	}
}

func TestETagMatches(t *testing.T) {
	etag := ETag("text")
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{etag, true},
		{"W/" + etag, true},
		{`"other", ` + etag, true},
		{"*", true},
		{`"other"`, false},
	}
	for _, tt := range tests {
		if got := ETagMatches(tt.header, etag); got != tt.want {
			t.Errorf("ETagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestParamsHash_Canonical(t *testing.T) {
	a := ParamsHash(map[string]string{"a": "1", "b": "2"})
	b := ParamsHash(map[string]string{"b": "2", "a": "1"})
	if a != b {
		t.Error("hash depends on map order")
	}
	if ParamsHash(nil) != ParamsHash(map[string]string{}) {
		t.Error("nil and empty params hash differently")
	}
	if a == ParamsHash(map[string]string{"a": "1", "b": "3"}) {
		t.Error("different values hash equally")
	}
}

func TestCodeHTTPStatus(t *testing.T) {
	for code, want := range map[Code]int{
		CodeValidation:   400,
		CodeUnauthorized: 401,
		CodeForbidden:    403,
		CodeNotFound:     404,
		CodeConflict:     409,
		CodeRateLimited:  429,
		CodeInternal:     500,
	} {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%s -> %d, want %d", code, got, want)
		}
	}
}

func mustFail(_ *Response, err error) error {
	return err
}
