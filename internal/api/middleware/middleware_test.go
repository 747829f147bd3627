package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/api/response"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/db/dbtest"
	"github.com/nebari-dev/refstore/internal/ratelimit"
	"github.com/nebari-dev/refstore/internal/rbac"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withCredential(cred *auth.Credential) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.CredentialContextKey, cred)
		c.Next()
	}
}

func ok(c *gin.Context) { c.Status(http.StatusNoContent) }

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(response.RequestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "abc-123" || w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("propagated id = %q / %q", w.Body.String(), w.Header().Get(RequestIDHeader))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(w.Body.String()); err != nil {
		t.Errorf("generated id %q is not a uuid", w.Body.String())
	}
}

func TestRequire(t *testing.T) {
	en, err := rbac.NewEnforcer(dbtest.Open(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cred *auth.Credential
		want int
	}{
		{"editor may write", &auth.Credential{Role: auth.RoleEditor}, http.StatusNoContent},
		{"viewer may not", &auth.Credential{Role: auth.RoleViewer}, http.StatusForbidden},
		{"no credential", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RequestID())
			if tt.cred != nil {
				r.Use(withCredential(tt.cred))
			}
			r.POST("/", Require(en, rbac.ObjContent, rbac.ActWrite), ok)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if w.Code == http.StatusForbidden {
				var body response.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatal(err)
				}
				if body.Error.Code != response.CodeForbidden || body.RequestID == "" {
					t.Errorf("envelope = %+v", body)
				}
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	cred := &auth.Credential{ID: "cred-1", Plan: "free"}
	limits := func(plan string) int {
		if plan == "free" {
			return 2
		}
		return 0
	}

	r := gin.New()
	r.Use(withCredential(cred), RateLimit(ratelimit.NewMemoryLimiter(time.Minute), limits, nil))
	r.GET("/", ok)

	want := []struct {
		code      int
		remaining string
	}{
		{http.StatusNoContent, "1"},
		{http.StatusNoContent, "0"},
		{http.StatusTooManyRequests, "0"},
	}
	for i, exp := range want {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != exp.code {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, exp.code)
		}
		if got := w.Header().Get("X-RateLimit-Remaining"); got != exp.remaining {
			t.Errorf("request %d: remaining = %q, want %q", i+1, got, exp.remaining)
		}
		if w.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("request %d: limit header = %q", i+1, w.Header().Get("X-RateLimit-Limit"))
		}
	}
}

func TestRateLimit_UnlimitedPlan(t *testing.T) {
	r := gin.New()
	r.Use(withCredential(&auth.Credential{ID: "c", Plan: "enterprise"}),
		RateLimit(ratelimit.NewMemoryLimiter(time.Minute), func(string) int { return 0 }, nil))
	r.GET("/", ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNoContent || w.Header().Get("X-RateLimit-Limit") != "" {
		t.Errorf("status = %d, limit header = %q", w.Code, w.Header().Get("X-RateLimit-Limit"))
	}
}
