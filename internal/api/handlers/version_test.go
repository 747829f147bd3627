package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/db/dbtest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseGitDescribe(t *testing.T) {
	tests := []struct {
		input       string
		wantVersion string
		wantCommit  string
	}{
		{"v1.2.3", "1.2.3", ""},
		{"1.2.3", "1.2.3", ""},
		{"v1.2.0-4-gabc1234", "1.2.0.dev+abc1234", "abc1234"},
		{"v1.2.0-4-gabc1234-dirty", "1.2.0.dev+abc1234", "abc1234"},
		{"v1.2-dirty", "1.2.dev", ""},
		{"v2.0.0-rc2", "2.0.0-rc2", ""},
		{"v2.0.0-rc2-1-g89abcde", "2.0.0-rc2.dev+89abcde", "89abcde"},
		{"89abcde", "dev+89abcde", "89abcde"},
		{"dev", "dev", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			gotVersion, gotCommit := parseGitDescribe(tt.input)
			if gotVersion != tt.wantVersion || gotCommit != tt.wantCommit {
				t.Errorf("parseGitDescribe(%q) = (%q, %q), want (%q, %q)",
					tt.input, gotVersion, gotCommit, tt.wantVersion, tt.wantCommit)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	old := Version
	Version = "v1.4.0-2-g0a1b2c3"
	defer func() { Version = old }()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/version", nil)
	GetVersion(c)

	var resp VersionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version != "1.4.0.dev+0a1b2c3" || resp.Commit != "0a1b2c3" || resp.GoVersion == "" {
		t.Errorf("unexpected version response: %+v", resp)
	}
}

func TestHealthCheck(t *testing.T) {
	db := dbtest.Open(t)
	handler := HealthCheck(db)

	check := func() (int, HealthResponse) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		handler(c)
		var resp HealthResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		return w.Code, resp
	}

	if code, resp := check(); code != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("healthy db: %d %+v", code, resp)
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()
	if code, resp := check(); code != http.StatusServiceUnavailable || resp.Status != "unhealthy" {
		t.Fatalf("closed db: %d %+v", code, resp)
	}
}
