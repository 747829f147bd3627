// Package queue carries resolve audit records from request handlers to the
// worker that persists them.
package queue

import (
	"context"
	"errors"

	"github.com/nebari-dev/refstore/internal/models"
)

var (
	// ErrQueueFull is returned when a record is dropped because the buffer is full
	ErrQueueFull = errors.New("queue is full")

	// ErrClosed is returned by Dequeue once the queue has been closed and drained
	ErrClosed = errors.New("queue is closed")
)

// Queue represents a resolve-log queue interface
type Queue interface {
	// Enqueue hands a record to the queue without waiting for it to be stored
	Enqueue(ctx context.Context, rec *models.ResolveLog) error

	// Dequeue retrieves the next record, blocking until one arrives.
	// context.DeadlineExceeded means no record arrived within the poll window.
	Dequeue(ctx context.Context) (*models.ResolveLog, error)

	// Close closes the queue and releases resources
	Close() error
}
