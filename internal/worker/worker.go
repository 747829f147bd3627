// Package worker persists resolve audit records taken from the queue.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/queue"
	"gorm.io/gorm"
)

// Worker drains the resolve-log queue into the database
type Worker struct {
	db         *gorm.DB
	queue      queue.Queue
	logger     *slog.Logger
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
}

// New creates a new worker instance
func New(db *gorm.DB, q queue.Queue, logger *slog.Logger) *Worker {
	maxWorkers := 4 // Concurrent inserts; SQLite serializes them anyway
	return &Worker{
		db:         db,
		queue:      q,
		logger:     logger,
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Start processes records until ctx is cancelled or the queue is closed
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Resolve-log worker started", "max_concurrent_writes", w.maxWorkers)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker shutting down, waiting for writes to complete")
			w.wg.Wait()
			return ctx.Err()
		default:
		}

		rec, err := w.queue.Dequeue(ctx)
		if err != nil {
			switch {
			case errors.Is(err, queue.ErrClosed):
				w.wg.Wait()
				w.logger.Info("Queue closed, worker stopped")
				return nil
			case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
				// Poll timeout or shutdown; the loop head decides
				continue
			}
			w.logger.Error("Failed to dequeue resolve log", "error", err)
			time.Sleep(time.Second) // Backoff on real errors
			continue
		}
		if rec == nil {
			continue
		}

		// Acquire semaphore slot (blocks if max workers reached)
		select {
		case w.semaphore <- struct{}{}:
			w.wg.Add(1)
			go func(r *models.ResolveLog) {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()

				w.persist(r)
			}(rec)
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		}
	}
}

func (w *Worker) persist(rec *models.ResolveLog) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic recovered while persisting resolve log", "ref", rec.Ref, "panic", r)
		}
	}()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	// The record may have been decoded from another replica; let the DB assign the key
	rec.ID = 0

	if err := w.db.Create(rec).Error; err != nil {
		w.logger.Error("Failed to persist resolve log", "ref", rec.Ref, "version_id", rec.VersionID, "error", err)
		return
	}
	w.logger.Debug("Resolve log persisted", "ref", rec.Ref, "version_id", rec.VersionID)
}
