package rbac

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelConf string

// Objects guarded by policy
const (
	ObjApp     = "app"
	ObjContent = "content" // templates, blueprints, blocks
	ObjVersion = "version"
	ObjResolve = "resolve"
	ObjToken   = "token"
	ObjAudit   = "audit"
)

// Actions
const (
	ActRead    = "read"
	ActWrite   = "write"
	ActPromote = "promote"
	ActExecute = "execute"
	ActIssue   = "issue"
)

// defaultPolicies are seeded on first start. Roles inherit downward:
// admin > editor > viewer.
var (
	defaultPolicies = [][]string{
		{"viewer", ObjApp, ActRead},
		{"viewer", ObjContent, ActRead},
		{"viewer", ObjVersion, ActRead},
		{"viewer", ObjResolve, ActExecute},
		{"editor", ObjContent, ActWrite},
		{"editor", ObjVersion, ActWrite},
		{"editor", ObjVersion, ActPromote},
		{"admin", ObjApp, "*"},
		{"admin", ObjToken, ActIssue},
		{"admin", ObjAudit, ActRead},
	}
	defaultGroupings = [][]string{
		{"editor", "viewer"},
		{"admin", "editor"},
	}
)

// Enforcer checks role permissions against policies stored in the database.
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer initializes the Casbin enforcer and seeds the default role
// policies when the policy table is empty.
func NewEnforcer(db *gorm.DB, logger *slog.Logger) (*Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	policies, err := e.GetPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to read policies: %w", err)
	}
	if len(policies) == 0 {
		if _, err := e.AddPolicies(defaultPolicies); err != nil {
			return nil, fmt.Errorf("failed to seed policies: %w", err)
		}
		if _, err := e.AddGroupingPolicies(defaultGroupings); err != nil {
			return nil, fmt.Errorf("failed to seed role hierarchy: %w", err)
		}
		logger.Info("Seeded default RBAC policies", "policies", len(defaultPolicies))
	}

	logger.Info("RBAC enforcer initialized")
	return &Enforcer{e: e}, nil
}

// Can reports whether role may perform act on obj.
func (en *Enforcer) Can(role, obj, act string) (bool, error) {
	return en.e.Enforce(role, obj, act)
}
