package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/db/dbtest"
	"github.com/nebari-dev/refstore/internal/models"
)

func TestLogAction(t *testing.T) {
	db := dbtest.Open(t)
	ws := uuid.New()

	if err := LogAction(db, ws, "cred-1", ActionCreateTemplate, "template:abc", map[string]interface{}{"slug": "greet"}); err != nil {
		t.Fatalf("LogAction: %v", err)
	}
	// Unmarshalable details fall back to an empty object
	if err := LogAction(db, ws, "cred-1", ActionDeleteTemplate, "template:abc", func() {}); err != nil {
		t.Fatalf("LogAction: %v", err)
	}

	var logs []models.AuditLog
	if err := db.Order("id").Find(&logs).Error; err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	if logs[0].DetailsJSON != `{"slug":"greet"}` || logs[0].WorkspaceID != ws || logs[0].Actor != "cred-1" {
		t.Errorf("unexpected first log: %+v", logs[0])
	}
	if logs[1].DetailsJSON != "{}" {
		t.Errorf("details = %q, want {}", logs[1].DetailsJSON)
	}
}

func TestList(t *testing.T) {
	db := dbtest.Open(t)
	ws, other := uuid.New(), uuid.New()

	LogAction(db, ws, "a", ActionCreateApp, "app:1", nil)
	LogAction(db, ws, "a", ActionCreateTemplate, "template:1", nil)
	LogAction(db, ws, "a", ActionCreateTemplate, "template:2", nil)
	LogAction(db, other, "b", ActionCreateTemplate, "template:3", nil)

	logs, err := List(context.Background(), db, ws, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 3 {
		t.Fatalf("got %d logs, want 3", len(logs))
	}
	if logs[0].Resource != "template:2" {
		t.Errorf("newest first: got %s", logs[0].Resource)
	}

	logs, _ = List(context.Background(), db, ws, ActionCreateTemplate, 1)
	if len(logs) != 1 || logs[0].Resource != "template:2" {
		t.Errorf("filtered = %+v", logs)
	}
}
