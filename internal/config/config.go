package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development signing secret. The server refuses to
// start with it in production mode.
const DefaultJWTSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Audit     AuditConfig     `mapstructure:"audit"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // "development" or "production"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`            // "sqlite" or "postgres"
	DSN             string `mapstructure:"dsn"`               // Connection string
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // Maximum idle connections (Postgres)
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // Maximum open connections (Postgres)
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // Connection max lifetime in minutes (Postgres)
	LogLevel        string `mapstructure:"log_level"`         // GORM log level; falls back to log.level
}

// AuthConfig holds credential verification settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"` // Secret for signing API credentials
	Issuer    string `mapstructure:"issuer"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format string `mapstructure:"format"` // "json" or "text"
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
}

// AuditConfig selects how resolve audit records leave the request path
type AuditConfig struct {
	Type       string `mapstructure:"type"`        // "memory" or "valkey"
	BufferSize int    `mapstructure:"buffer_size"` // In-memory buffer before records are dropped
	ValkeyAddr string `mapstructure:"valkey_addr"` // e.g. "localhost:6379"
	ValkeyKey  string `mapstructure:"valkey_key"`
}

// RateLimitConfig holds per-plan request quotas for the resolve endpoint
type RateLimitConfig struct {
	Type          string         `mapstructure:"type"` // "memory", "valkey" or "none"
	WindowSeconds int            `mapstructure:"window_seconds"`
	Plans         map[string]int `mapstructure:"plans"` // plan tier -> requests per window
	ValkeyAddr    string         `mapstructure:"valkey_addr"`
}

// LimitFor returns the quota for a plan tier, falling back to the "free" tier.
func (c RateLimitConfig) LimitFor(plan string) int {
	if n, ok := c.Plans[strings.ToLower(plan)]; ok {
		return n
	}
	return c.Plans["free"]
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for local development
	v.SetDefault("server.port", 8470)
	v.SetDefault("server.mode", "development")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./refstore.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60) // 60 minutes
	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("auth.issuer", "refstore")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("audit.type", "memory")
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.valkey_addr", "localhost:6379")
	v.SetDefault("audit.valkey_key", "refstore:resolve-log")
	v.SetDefault("ratelimit.type", "memory")
	v.SetDefault("ratelimit.window_seconds", 60)
	v.SetDefault("ratelimit.plans", map[string]int{
		"free":       60,
		"pro":        600,
		"enterprise": 6000,
	})
	v.SetDefault("ratelimit.valkey_addr", "localhost:6379")

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/refstore/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults
	}

	// Environment variables override
	v.SetEnvPrefix("REFSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
