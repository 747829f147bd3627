package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nebari-dev/refstore/internal/models"
)

// MemoryQueue implements an in-memory resolve-log queue. Enqueue never
// blocks: records are dropped when the buffer is full.
type MemoryQueue struct {
	records chan *models.ResolveLog
	mu      sync.RWMutex
	closed  bool
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	q := &MemoryQueue{
		records: make(chan *models.ResolveLog, bufferSize),
	}

	slog.Info("Initialized in-memory resolve-log queue", "buffer_size", bufferSize)
	return q
}

// Enqueue adds a record to the queue
func (q *MemoryQueue) Enqueue(ctx context.Context, rec *models.ResolveLog) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.records <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue retrieves the next record from the queue
func (q *MemoryQueue) Dequeue(ctx context.Context) (*models.ResolveLog, error) {
	select {
	case rec, ok := <-q.records:
		if !ok {
			return nil, ErrClosed
		}
		return rec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of buffered records
func (q *MemoryQueue) Len() int {
	return len(q.records)
}

// Close closes the queue. Buffered records can still be dequeued.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.records)
		slog.Info("Memory queue closed")
	}
	return nil
}
