package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8470 || cfg.Database.Driver != "sqlite" || cfg.Audit.Type != "memory" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.JWTSecret != DefaultJWTSecret {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.RateLimit.LimitFor("pro") != 600 {
		t.Errorf("pro limit = %d", cfg.RateLimit.LimitFor("pro"))
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := []byte("server:\n  port: 9000\nlog:\n  level: debug\nratelimit:\n  plans:\n    free: 5\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REFSTORE_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000 from file", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, want env override", cfg.Log.Level)
	}
	if cfg.RateLimit.LimitFor("free") != 5 {
		t.Errorf("free limit = %d, want 5", cfg.RateLimit.LimitFor("free"))
	}
}

func TestLimitFor_FallsBackToFree(t *testing.T) {
	c := RateLimitConfig{Plans: map[string]int{"free": 10, "pro": 100}}
	tests := map[string]int{"pro": 100, "PRO": 100, "free": 10, "unknown": 10, "": 10}
	for plan, want := range tests {
		if got := c.LimitFor(plan); got != want {
			t.Errorf("LimitFor(%q) = %d, want %d", plan, got, want)
		}
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
