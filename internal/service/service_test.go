package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/blueprint"
	"github.com/nebari-dev/refstore/internal/db/dbtest"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/versioning"
	"gorm.io/gorm"
)

type services struct {
	db         *gorm.DB
	apps       *AppService
	templates  *TemplateService
	blueprints *BlueprintService
	scope      Scope
}

// testSetup creates a temp DB and wires every service over it.
func testSetup(t *testing.T) *services {
	t.Helper()
	db := dbtest.Open(t)

	apps := NewAppService(db)
	return &services{
		db:         db,
		apps:       apps,
		templates:  NewTemplateService(db, apps, versioning.New[models.TemplateVersion](db, versioning.TemplateKind)),
		blueprints: NewBlueprintService(db, apps, blueprint.NewVersioner(db), versioning.New[models.BlockVersion](db, versioning.BlockKind)),
		scope:      Scope{WorkspaceID: uuid.New(), Actor: "cred-test"},
	}
}

func (s *services) createApp(t *testing.T, slug string) *models.App {
	t.Helper()
	app, err := s.apps.Create(context.Background(), s.scope, CreateAppRequest{Slug: slug, Name: slug})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	return app
}

func expectValidation(t *testing.T, err error, want string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if want != "" && ve.Message != want {
		t.Errorf("message = %q, want %q", ve.Message, want)
	}
}

func expectConflict(t *testing.T, err error) {
	t.Helper()
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}

// --- Apps ---

func TestCreateApp_Validation(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	_, err := s.apps.Create(ctx, s.scope, CreateAppRequest{Slug: "", Name: ""})
	expectValidation(t, err, "slug is required")

	_, err = s.apps.Create(ctx, s.scope, CreateAppRequest{Slug: "My_App", Name: "x"})
	expectValidation(t, err, "slug must contain only lowercase letters, digits and hyphens")

	_, err = s.apps.Create(ctx, s.scope, CreateAppRequest{Slug: "ok"})
	expectValidation(t, err, "name is required")
}

func TestCreateApp_DuplicateSlug(t *testing.T) {
	s := testSetup(t)
	s.createApp(t, "myapp")

	_, err := s.apps.Create(context.Background(), s.scope, CreateAppRequest{Slug: "myapp", Name: "again"})
	expectConflict(t, err)

	// Another workspace may reuse the slug
	other := Scope{WorkspaceID: uuid.New(), Actor: "other"}
	if _, err := s.apps.Create(context.Background(), other, CreateAppRequest{Slug: "myapp", Name: "mine"}); err != nil {
		t.Fatalf("create in other workspace: %v", err)
	}
}

func TestGetApp_Scoping(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	a := s.createApp(t, "alpha")
	s.createApp(t, "beta")

	if _, err := s.apps.Get(ctx, Scope{WorkspaceID: uuid.New()}, "alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other workspace: expected ErrNotFound, got %v", err)
	}

	scoped := Scope{WorkspaceID: s.scope.WorkspaceID, AppID: a.ID}
	if _, err := s.apps.Get(ctx, scoped, "alpha"); err != nil {
		t.Errorf("own app: %v", err)
	}
	if _, err := s.apps.Get(ctx, scoped, "beta"); !errors.Is(err, ErrForbidden) {
		t.Errorf("other app: expected ErrForbidden, got %v", err)
	}

	apps, err := s.apps.List(ctx, scoped)
	if err != nil || len(apps) != 1 || apps[0].Slug != "alpha" {
		t.Errorf("scoped list = %v, %v", apps, err)
	}
	if _, err := s.apps.Create(ctx, scoped, CreateAppRequest{Slug: "gamma", Name: "g"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("scoped create: expected ErrForbidden, got %v", err)
	}
}

func TestDeleteApp_Cascades(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	s.createApp(t, "myapp")

	if _, _, err := s.templates.Create(ctx, s.scope, "myapp", CreateTemplateRequest{Slug: "greet", Name: "Greet", Content: "Hi"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.blueprints.Create(ctx, s.scope, "myapp", CreateBlueprintRequest{Slug: "bp", Name: "BP"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.blueprints.CreateBlock(ctx, s.scope, "myapp", "bp", CreateBlockRequest{Slug: "intro", Content: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.blueprints.CreateVersion(ctx, s.scope, "myapp", "bp", SnapshotRequest{}); err != nil {
		t.Fatal(err)
	}

	if err := s.apps.Delete(ctx, s.scope, "myapp"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, model := range []interface{}{
		&models.App{}, &models.Template{}, &models.TemplateVersion{},
		&models.Blueprint{}, &models.Block{}, &models.BlockVersion{}, &models.BlueprintVersion{},
	} {
		var n int64
		s.db.Model(model).Count(&n)
		if n != 0 {
			t.Errorf("%T: %d rows left after cascade", model, n)
		}
	}

	var logs int64
	s.db.Model(&models.AuditLog{}).Where("action = ?", "delete_app").Count(&logs)
	if logs != 1 {
		t.Errorf("delete_app audit entries = %d, want 1", logs)
	}
}

// --- Templates ---

func TestCreateTemplate_WithInitialVersion(t *testing.T) {
	s := testSetup(t)
	s.createApp(t, "myapp")

	tmpl, v, err := s.templates.Create(context.Background(), s.scope, "myapp", CreateTemplateRequest{
		Slug: "greet", Name: "Greet", ModelHint: "gpt-4o", Content: "Hi {{name}}", Note: "first",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tmpl.ModelHint != "gpt-4o" {
		t.Errorf("model hint = %q", tmpl.ModelHint)
	}
	if v == nil || v.VersionNumber != 1 || v.Content != "Hi {{name}}" || v.Note != "first" || v.CreatedBy != "cred-test" {
		t.Errorf("initial version = %+v", v)
	}
}

func TestCreateTemplate_SlugSharedWithBlueprint(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	s.createApp(t, "myapp")

	if _, err := s.blueprints.Create(ctx, s.scope, "myapp", CreateBlueprintRequest{Slug: "greet", Name: "BP"}); err != nil {
		t.Fatal(err)
	}
	_, _, err := s.templates.Create(ctx, s.scope, "myapp", CreateTemplateRequest{Slug: "greet", Name: "Greet"})
	expectConflict(t, err)

	if _, _, err := s.templates.Create(ctx, s.scope, "myapp", CreateTemplateRequest{Slug: "hello", Name: "Hello"}); err != nil {
		t.Fatal(err)
	}
	_, err = s.blueprints.Create(ctx, s.scope, "myapp", CreateBlueprintRequest{Slug: "hello", Name: "BP"})
	expectConflict(t, err)
}

func TestCreate_ConcurrentSlugAcrossKinds(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	s.createApp(t, "myapp")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _, errs[i] = s.templates.Create(ctx, s.scope, "myapp", CreateTemplateRequest{Slug: "shared", Name: "T"})
			} else {
				_, errs[i] = s.blueprints.Create(ctx, s.scope, "myapp", CreateBlueprintRequest{Slug: "shared", Name: "B"})
			}
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		expectConflict(t, err)
	}
	if created != 1 {
		t.Fatalf("%d creators succeeded, want 1", created)
	}

	var templates, blueprints int64
	s.db.Model(&models.Template{}).Where("slug = ?", "shared").Count(&templates)
	s.db.Model(&models.Blueprint{}).Where("slug = ?", "shared").Count(&blueprints)
	if templates+blueprints != 1 {
		t.Errorf("rows using slug: %d templates, %d blueprints", templates, blueprints)
	}
}

func TestTemplate_VersionLifecycle(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	s.createApp(t, "myapp")
	if _, _, err := s.templates.Create(ctx, s.scope, "myapp", CreateTemplateRequest{Slug: "greet", Name: "Greet", Content: "A"}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []string{"B", "C"} {
		if _, err := s.templates.CreateVersion(ctx, s.scope, "myapp", "greet", CreateVersionRequest{Content: c}); err != nil {
			t.Fatal(err)
		}
	}

	_, err := s.templates.CreateVersion(ctx, s.scope, "myapp", "greet", CreateVersionRequest{})
	expectValidation(t, err, "content is required")

	if _, err := s.templates.PromoteVersion(ctx, s.scope, "myapp", "greet", 3, "stable"); err != nil {
		t.Fatal(err)
	}
	_, err = s.templates.PromoteVersion(ctx, s.scope, "myapp", "greet", 1, "golden")
	expectValidation(t, err, "")
	if _, err := s.templates.PromoteVersion(ctx, s.scope, "myapp", "greet", 9, "stable"); !errors.Is(err, ErrNotFound) {
		t.Errorf("promote missing version: expected ErrNotFound, got %v", err)
	}

	v4, err := s.templates.RestoreVersion(ctx, s.scope, "myapp", "greet", 2)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if v4.VersionNumber != 4 || v4.Content != "B" || v4.Status != models.StatusDraft {
		t.Errorf("restored = %+v", v4)
	}

	versions, err := s.templates.ListVersions(ctx, s.scope, "myapp", "greet")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 4 || versions[0].VersionNumber != 4 {
		t.Errorf("versions not newest first: %d entries", len(versions))
	}
	v3, err := s.templates.GetVersion(ctx, s.scope, "myapp", "greet", 3)
	if err != nil || v3.Status != models.StatusStable {
		t.Errorf("v3 = %+v, %v", v3, err)
	}
}

func TestUpdateTemplate(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	s.createApp(t, "myapp")
	if _, _, err := s.templates.Create(ctx, s.scope, "myapp", CreateTemplateRequest{Slug: "greet", Name: "Greet"}); err != nil {
		t.Fatal(err)
	}

	name, hint := "Greeting", "claude"
	got, err := s.templates.Update(ctx, s.scope, "myapp", "greet", UpdateEntityRequest{Name: &name, ModelHint: &hint})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != name || got.ModelHint != hint {
		t.Errorf("updated = %+v", got)
	}

	empty := ""
	_, err = s.templates.Update(ctx, s.scope, "myapp", "greet", UpdateEntityRequest{Name: &empty})
	expectValidation(t, err, "name is required")
}

func TestDeleteTemplate(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	s.createApp(t, "myapp")
	if _, _, err := s.templates.Create(ctx, s.scope, "myapp", CreateTemplateRequest{Slug: "greet", Name: "Greet", Content: "x"}); err != nil {
		t.Fatal(err)
	}

	if err := s.templates.Delete(ctx, s.scope, "myapp", "greet"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.templates.Get(ctx, s.scope, "myapp", "greet"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	var n int64
	s.db.Model(&models.TemplateVersion{}).Count(&n)
	if n != 0 {
		t.Errorf("%d versions left", n)
	}
}

// --- Blueprints ---

func TestBlueprint_BlocksAndSnapshots(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	s.createApp(t, "myapp")
	if _, err := s.blueprints.Create(ctx, s.scope, "myapp", CreateBlueprintRequest{Slug: "support", Name: "Support"}); err != nil {
		t.Fatal(err)
	}

	b1, _, err := s.blueprints.CreateBlock(ctx, s.scope, "myapp", "support", CreateBlockRequest{Slug: "one", Type: "system", Content: "1"})
	if err != nil {
		t.Fatal(err)
	}
	b2, v, err := s.blueprints.CreateBlock(ctx, s.scope, "myapp", "support", CreateBlockRequest{
		Slug: "two", Content: "2", Config: json.RawMessage(`{"role":"user"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if b2.Position != b1.Position+1 {
		t.Errorf("default position = %d, want %d", b2.Position, b1.Position+1)
	}
	if string(v.Config) != `{"role":"user"}` {
		t.Errorf("config = %s", v.Config)
	}

	_, _, err = s.blueprints.CreateBlock(ctx, s.scope, "myapp", "support", CreateBlockRequest{Slug: "bad", Type: "poem"})
	expectValidation(t, err, "type must be one of system, instruction, context, example, output")
	_, _, err = s.blueprints.CreateBlock(ctx, s.scope, "myapp", "support", CreateBlockRequest{Slug: "cfg", Config: json.RawMessage(`[1]`)})
	expectValidation(t, err, "config must be a JSON object")
	_, _, err = s.blueprints.CreateBlock(ctx, s.scope, "myapp", "support", CreateBlockRequest{Slug: "one"})
	expectConflict(t, err)

	if _, err := s.blueprints.CreateVersion(ctx, s.scope, "myapp", "support", SnapshotRequest{Note: "v1"}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.blueprints.CreateBlockVersion(ctx, s.scope, "myapp", "support", "two", CreateBlockVersionRequest{Content: "2b"}); err != nil {
		t.Fatal(err)
	}
	if err := s.blueprints.DeleteBlock(ctx, s.scope, "myapp", "support", "one"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.blueprints.CreateBlock(ctx, s.scope, "myapp", "support", CreateBlockRequest{Slug: "three", Content: "3"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.blueprints.CreateVersion(ctx, s.scope, "myapp", "support", SnapshotRequest{}); err != nil {
		t.Fatal(err)
	}

	v1, err := s.blueprints.GetVersion(ctx, s.scope, "myapp", "support", 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v1.Snapshot[b1.ID.String()]; !ok {
		t.Error("deleting a block edited an existing snapshot")
	}

	entries, err := s.blueprints.Diff(ctx, s.scope, "myapp", "support", 1, 2)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	var kinds []string
	for _, e := range entries {
		kinds = append(kinds, e.Slug+":"+string(e.Kind))
	}
	want := []string{"two:changed", "three:added", ":removed"}
	if len(kinds) != len(want) {
		t.Fatalf("diff = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("diff = %v, want %v", kinds, want)
			break
		}
	}
}

func TestBlueprint_PromoteRestoreAndUpdateBlock(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	s.createApp(t, "myapp")
	if _, err := s.blueprints.Create(ctx, s.scope, "myapp", CreateBlueprintRequest{Slug: "bp", Name: "BP"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.blueprints.CreateBlock(ctx, s.scope, "myapp", "bp", CreateBlockRequest{Slug: "intro", Content: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.blueprints.CreateVersion(ctx, s.scope, "myapp", "bp", SnapshotRequest{}); err != nil {
		t.Fatal(err)
	}

	promoted, err := s.blueprints.PromoteVersion(ctx, s.scope, "myapp", "bp", 1, "active")
	if err != nil || promoted.Status != models.StatusActive {
		t.Fatalf("promote = %+v, %v", promoted, err)
	}
	restored, err := s.blueprints.RestoreVersion(ctx, s.scope, "myapp", "bp", 1)
	if err != nil || restored.VersionNumber != 2 || restored.Note != "Restored from v1" {
		t.Fatalf("restore = %+v, %v", restored, err)
	}

	bv, err := s.blueprints.PromoteBlockVersion(ctx, s.scope, "myapp", "bp", "intro", 1, "stable")
	if err != nil || bv.Status != models.StatusStable {
		t.Fatalf("promote block = %+v, %v", bv, err)
	}
	rbv, err := s.blueprints.RestoreBlockVersion(ctx, s.scope, "myapp", "bp", "intro", 1)
	if err != nil || rbv.VersionNumber != 2 || rbv.Content != "a" {
		t.Fatalf("restore block = %+v, %v", rbv, err)
	}

	disabled, pos := true, 5
	block, err := s.blueprints.UpdateBlock(ctx, s.scope, "myapp", "bp", "intro", UpdateBlockRequest{Disabled: &disabled, Position: &pos})
	if err != nil {
		t.Fatal(err)
	}
	if !block.Disabled || block.Position != 5 {
		t.Errorf("updated block = %+v", block)
	}

	if _, err := s.blueprints.UpdateBlock(ctx, s.scope, "myapp", "bp", "missing", UpdateBlockRequest{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
