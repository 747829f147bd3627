// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/nebari-dev/refstore/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a migrated SQLite database in a temp dir. It uses a single
// connection like the production SQLite setup, so concurrent tests exercise
// the same serialization the server relies on.
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbPath := filepath.Join(tb.TempDir(), "test.db")
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return gdb
}
