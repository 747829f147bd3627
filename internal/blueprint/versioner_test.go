package blueprint

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/db/dbtest"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/versioning"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	versioner *Versioner
	blocks    *versioning.Store[models.BlockVersion, *models.BlockVersion]
	blueprint models.Blueprint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)

	app := models.App{WorkspaceID: uuid.New(), Slug: "myapp", Name: "My App"}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("create app: %v", err)
	}
	bp := models.Blueprint{AppID: app.ID, Slug: "support", Name: "Support"}
	if err := db.Create(&bp).Error; err != nil {
		t.Fatalf("create blueprint: %v", err)
	}

	return &fixture{
		db:        db,
		versioner: NewVersioner(db),
		blocks:    versioning.New[models.BlockVersion](db, versioning.BlockKind),
		blueprint: bp,
	}
}

func (f *fixture) addBlock(t *testing.T, slug string, position int, contents ...string) models.Block {
	t.Helper()
	b := models.Block{BlueprintID: f.blueprint.ID, Slug: slug, Type: models.BlockTypeInstruction, Position: position}
	if err := f.db.Create(&b).Error; err != nil {
		t.Fatalf("create block: %v", err)
	}
	for _, c := range contents {
		f.addBlockVersion(t, b, c)
	}
	return b
}

func (f *fixture) addBlockVersion(t *testing.T, b models.Block, content string) {
	t.Helper()
	_, err := f.blocks.Create(context.Background(), b.ID, "", "tester", func(tx *gorm.DB, v *models.BlockVersion) error {
		v.Content = content
		return nil
	})
	if err != nil {
		t.Fatalf("create block version: %v", err)
	}
}

func (f *fixture) snapshot(t *testing.T) *models.BlueprintVersion {
	t.Helper()
	v, err := f.versioner.CreateVersion(context.Background(), f.blueprint.ID, "", "tester")
	if err != nil {
		t.Fatalf("create blueprint version: %v", err)
	}
	return v
}

func TestCreateVersion_RecordsLatestBlockVersions(t *testing.T) {
	f := newFixture(t)
	intro := f.addBlock(t, "intro", 0, "a", "b")
	rules := f.addBlock(t, "rules", 1, "r")
	f.addBlock(t, "empty", 2)

	v := f.snapshot(t)

	want := models.Snapshot{intro.ID.String(): 2, rules.ID.String(): 1}
	if !reflect.DeepEqual(v.Snapshot, want) {
		t.Errorf("snapshot = %v, want %v", v.Snapshot, want)
	}
	if v.VersionNumber != 1 || v.Status != models.StatusDraft {
		t.Errorf("got v%d %s, want v1 draft", v.VersionNumber, v.Status)
	}

	stored, err := f.versioner.Versions().Get(context.Background(), f.blueprint.ID, v.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(stored.Snapshot, want) {
		t.Errorf("stored snapshot = %v, want %v", stored.Snapshot, want)
	}
}

func TestCreateVersion_ScopedToBlueprint(t *testing.T) {
	f := newFixture(t)
	f.addBlock(t, "intro", 0, "a")

	other := models.Blueprint{AppID: f.blueprint.AppID, Slug: "other", Name: "Other"}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatal(err)
	}
	ob := models.Block{BlueprintID: other.ID, Slug: "intro", Position: 0}
	if err := f.db.Create(&ob).Error; err != nil {
		t.Fatal(err)
	}
	f.addBlockVersion(t, ob, "foreign")

	v := f.snapshot(t)
	if _, ok := v.Snapshot[ob.ID.String()]; ok {
		t.Error("snapshot includes a block of another blueprint")
	}
	if len(v.Snapshot) != 1 {
		t.Errorf("snapshot = %v, want one entry", v.Snapshot)
	}
}

func TestDiffVersions_WithDeletedBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.addBlock(t, "one", 0, "1")
	b2 := f.addBlock(t, "two", 1, "2a", "2b")
	f.snapshot(t)

	if err := f.db.Where("block_id = ?", b1.ID).Delete(&models.BlockVersion{}).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.db.Delete(&b1).Error; err != nil {
		t.Fatal(err)
	}
	f.addBlockVersion(t, b2, "2c")
	b3 := f.addBlock(t, "three", 2, "3")
	f.snapshot(t)

	changes, err := f.versioner.DiffVersions(ctx, f.blueprint.ID, 1, 2)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	got := map[string]ChangeKind{}
	for _, c := range changes {
		got[c.BlockID] = c.Kind
	}
	want := map[string]ChangeKind{
		b1.ID.String(): Removed,
		b2.ID.String(): Changed,
		b3.ID.String(): Added,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("diff = %v, want %v", got, want)
	}

	if _, err := f.versioner.DiffVersions(ctx, f.blueprint.ID, 1, 9); err == nil {
		t.Error("expected error diffing a missing version")
	}
}

func TestCompose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Created out of position order on purpose
	f.addBlock(t, "rules", 2, "Be brief.")
	intro := f.addBlock(t, "intro", 0, "You are {{role}}.", "You help {{user}}.")
	f.addBlock(t, "later", 1)

	v := f.snapshot(t)
	f.addBlockVersion(t, intro, "newer text not in snapshot")

	got, err := f.versioner.Compose(ctx, v)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if want := "You help {{user}}.\n\nBe brief."; got.Text != want {
		t.Errorf("text = %q, want %q", got.Text, want)
	}
	if len(got.Blocks) != 2 || got.Blocks[0].Slug != "intro" || got.Blocks[0].Version != 2 || got.Blocks[1].Slug != "rules" {
		t.Errorf("blocks = %+v", got.Blocks)
	}
	if len(got.Omitted) != 0 {
		t.Errorf("omitted = %+v, want none", got.Omitted)
	}
}

func TestCompose_DisabledAndDeletedBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep := f.addBlock(t, "keep", 0, "kept")
	off := f.addBlock(t, "off", 1, "disabled")
	gone := f.addBlock(t, "gone", 2, "deleted")
	pruned := f.addBlock(t, "pruned", 3, "version removed")
	v := f.snapshot(t)

	if err := f.db.Model(&off).Update("disabled", true).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.db.Where("block_id = ?", gone.ID).Delete(&models.BlockVersion{}).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.db.Delete(&gone).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.db.Where("block_id = ?", pruned.ID).Delete(&models.BlockVersion{}).Error; err != nil {
		t.Fatal(err)
	}

	got, err := f.versioner.Compose(ctx, v)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if got.Text != "kept" {
		t.Errorf("text = %q, want %q", got.Text, "kept")
	}
	if len(got.Blocks) != 1 || got.Blocks[0].BlockID != keep.ID.String() {
		t.Errorf("blocks = %+v", got.Blocks)
	}

	reasons := map[string]OmitReason{}
	for _, o := range got.Omitted {
		reasons[o.BlockID] = o.Reason
	}
	want := map[string]OmitReason{
		gone.ID.String():   OmitBlockDeleted,
		pruned.ID.String(): OmitVersionMissing,
	}
	if !reflect.DeepEqual(reasons, want) {
		t.Errorf("omitted = %v, want %v", reasons, want)
	}
}

func TestRestore_CopiesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBlock(t, "intro", 0, "a")
	v1 := f.snapshot(t)
	f.addBlockVersion(t, b, "b")
	f.snapshot(t)

	v3, err := f.versioner.Versions().Restore(ctx, f.blueprint.ID, v1.ID, "tester")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if v3.VersionNumber != 3 || v3.Snapshot[b.ID.String()] != 1 {
		t.Errorf("restored v%d snapshot %v", v3.VersionNumber, v3.Snapshot)
	}
	if v3.Note != "Restored from v1" {
		t.Errorf("note = %q", v3.Note)
	}
}
