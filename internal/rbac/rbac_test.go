package rbac

import (
	"io"
	"log/slog"
	"testing"

	"github.com/nebari-dev/refstore/internal/db/dbtest"
)

func newEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	en, err := NewEnforcer(dbtest.Open(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	return en
}

func TestDefaultPolicies(t *testing.T) {
	en := newEnforcer(t)

	tests := []struct {
		role, obj, act string
		want           bool
	}{
		{"viewer", ObjContent, ActRead, true},
		{"viewer", ObjResolve, ActExecute, true},
		{"viewer", ObjContent, ActWrite, false},
		{"viewer", ObjVersion, ActPromote, false},
		{"editor", ObjContent, ActRead, true},
		{"editor", ObjContent, ActWrite, true},
		{"editor", ObjVersion, ActPromote, true},
		{"editor", ObjApp, ActWrite, false},
		{"editor", ObjToken, ActIssue, false},
		{"admin", ObjApp, ActWrite, true},
		{"admin", ObjApp, "delete", true},
		{"admin", ObjResolve, ActExecute, true},
		{"admin", ObjToken, ActIssue, true},
		{"stranger", ObjContent, ActRead, false},
	}
	for _, tt := range tests {
		got, err := en.Can(tt.role, tt.obj, tt.act)
		if err != nil {
			t.Fatalf("Can(%s,%s,%s): %v", tt.role, tt.obj, tt.act, err)
		}
		if got != tt.want {
			t.Errorf("Can(%s,%s,%s) = %v, want %v", tt.role, tt.obj, tt.act, got, tt.want)
		}
	}
}
