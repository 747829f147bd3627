// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nebari-dev/refstore/internal/api"
	"github.com/nebari-dev/refstore/internal/api/handlers"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/config"
	"github.com/nebari-dev/refstore/internal/db"
	"github.com/nebari-dev/refstore/internal/logger"
	"github.com/nebari-dev/refstore/internal/metrics"
	"github.com/nebari-dev/refstore/internal/queue"
	"github.com/nebari-dev/refstore/internal/ratelimit"
	"github.com/nebari-dev/refstore/internal/rbac"
	"github.com/nebari-dev/refstore/internal/worker"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 5 * time.Second
)

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	slog.Info("Starting refstore server", "version", cfg.Version, "mode", appCfg.Server.Mode)

	if appCfg.Server.Mode == "production" && appCfg.Auth.JWTSecret == config.DefaultJWTSecret {
		return fmt.Errorf("auth.jwt_secret must be set in production mode")
	}

	// Propagate app log level to database if not explicitly set
	if appCfg.Database.LogLevel == "" {
		appCfg.Database.LogLevel = appCfg.Log.Level
	}

	database, err := db.New(appCfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close(database)
	slog.Info("Database initialized", "driver", appCfg.Database.Driver)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	enforcer, err := rbac.NewEnforcer(database, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize RBAC: %w", err)
	}

	auditQueue, err := createQueue(appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize audit queue: %w", err)
	}
	slog.Info("Audit queue initialized", "type", appCfg.Audit.Type)

	limiter, err := createLimiter(appCfg)
	if err != nil {
		auditQueue.Close()
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	router := api.NewRouter(appCfg, api.Deps{
		DB:       database,
		Audit:    auditQueue,
		Issuer:   auth.NewTokenIssuer(appCfg.Auth.JWTSecret, appCfg.Auth.Issuer),
		Enforcer: enforcer,
		Limiter:  limiter,
		Metrics:  metrics.New(),
		Logger:   slog.Default(),
	})

	addr := fmt.Sprintf(":%d", appCfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The worker outlives the request context so buffered audit records
	// are written after the listener stops.
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	w := worker.New(database, auditQueue, slog.Default())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := w.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker failed: %w", err)
		}
		slog.Info("Worker stopped")
		return nil
	})

	g.Go(func() error {
		slog.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr := srv.Shutdown(shutdownCtx)
		if shutdownErr == nil {
			slog.Info("Server stopped")
		}

		auditQueue.Close()
		if c, ok := limiter.(interface{ Close() error }); ok {
			c.Close()
		}
		time.AfterFunc(drainTimeout, cancelWorker)

		if shutdownErr != nil {
			return fmt.Errorf("server forced to shutdown: %w", shutdownErr)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("refstore exited")
	return err
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg)
}

// createQueue creates the audit queue based on configuration.
func createQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.Audit.Type {
	case "memory", "":
		return queue.NewMemoryQueue(cfg.Audit.BufferSize), nil
	case "valkey":
		if cfg.Audit.ValkeyAddr == "" {
			return nil, fmt.Errorf("valkey address is required when audit type is valkey")
		}
		return queue.NewValkeyQueue(cfg.Audit.ValkeyAddr, cfg.Audit.ValkeyKey)
	default:
		return nil, fmt.Errorf("unsupported audit type: %s (supported: memory, valkey)", cfg.Audit.Type)
	}
}

// createLimiter creates the resolve rate limiter based on configuration.
// A nil limiter disables rate limiting.
func createLimiter(cfg *config.Config) (ratelimit.Limiter, error) {
	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}

	switch cfg.RateLimit.Type {
	case "none":
		return nil, nil
	case "memory", "":
		return ratelimit.NewMemoryLimiter(window), nil
	case "valkey":
		if cfg.RateLimit.ValkeyAddr == "" {
			return nil, fmt.Errorf("valkey address is required when ratelimit type is valkey")
		}
		return ratelimit.NewValkeyLimiter(cfg.RateLimit.ValkeyAddr, window)
	default:
		return nil, fmt.Errorf("unsupported ratelimit type: %s (supported: memory, valkey, none)", cfg.RateLimit.Type)
	}
}
