// Package store keeps the refstore CLI's local state: the server it talks
// to, the credential it presents and validated resolve responses.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const dbFile = "refstore.db"

// Store is a handle on the CLI state database.
type Store struct {
	db *gorm.DB
}

// New opens the store in DefaultDataDir.
func New() (*Store, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return nil, fmt.Errorf("locating data dir: %w", err)
	}
	return Open(dir)
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, dbFile)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	s := &Store{db: db}

	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// init migrates the schema and makes sure both singleton rows exist, so
// loads never see an empty table.
func (s *Store) init() error {
	if err := s.db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	if err := s.db.AutoMigrate(&Config{}, &Credentials{}, &CachedResolve{}); err != nil {
		return fmt.Errorf("migrate state db: %w", err)
	}
	if err := s.db.FirstOrCreate(&Config{ID: singletonID}).Error; err != nil {
		return fmt.Errorf("seed config: %w", err)
	}
	if err := s.db.FirstOrCreate(&Credentials{ID: singletonID}).Error; err != nil {
		return fmt.Errorf("seed credentials: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DefaultDataDir picks the state directory. REFSTORE_DATA_DIR wins, then
// XDG_DATA_HOME, then the platform's per-user application data location.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("REFSTORE_DATA_DIR"); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" && runtime.GOOS != "windows" {
		return filepath.Join(xdg, "refstore"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "refstore"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "refstore"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "refstore"), nil
	}
	return filepath.Join(home, ".local", "share", "refstore"), nil
}

const singletonID = 1

// Config holds the server the CLI is logged in to.
type Config struct {
	ID        int    `gorm:"primarykey"`
	ServerURL string `gorm:"not null;default:''"`
}

func (Config) TableName() string { return "store_config" }

// Credentials is the bearer token plus the claims the CLI shows without
// asking the server.
type Credentials struct {
	ID          int    `gorm:"primarykey"`
	Token       string `gorm:"not null;default:''"`
	WorkspaceID string `gorm:"not null;default:''"`
	Role        string `gorm:"not null;default:''"`
}

func (Credentials) TableName() string { return "store_credentials" }

// CachedResolve maps a request key to the resolved text last served for it
// and the ETag that revalidates it.
type CachedResolve struct {
	Key       string `gorm:"primarykey"`
	ETag      string `gorm:"not null"`
	Response  string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (CachedResolve) TableName() string { return "store_resolve_cache" }
