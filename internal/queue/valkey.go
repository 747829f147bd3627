package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nebari-dev/refstore/internal/models"
	"github.com/valkey-io/valkey-go"
)

// ValkeyQueue implements a distributed resolve-log queue using Valkey.
// Records travel as JSON on a list so any server replica's worker can
// persist them.
type ValkeyQueue struct {
	client valkey.Client
	key    string // Queue key, e.g. "refstore:resolve-log"
}

// NewValkeyQueue creates a new Valkey-backed queue
func NewValkeyQueue(addr, key string) (*ValkeyQueue, error) {
	// Create Valkey client with connection pool
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pingCmd := client.B().Ping().Build()
	if err := client.Do(ctx, pingCmd).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	q := &ValkeyQueue{
		client: client,
		key:    key,
	}

	slog.Info("Initialized Valkey resolve-log queue",
		"address", addr,
		"queue_key", q.key)
	return q, nil
}

// Enqueue pushes the record to the Valkey list (RPUSH for FIFO)
func (q *ValkeyQueue) Enqueue(ctx context.Context, rec *models.ResolveLog) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal resolve log: %w", err)
	}

	cmd := q.client.B().Rpush().Key(q.key).Element(string(data)).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to push resolve log to Valkey: %w", err)
	}
	return nil
}

// Dequeue retrieves the next record from the queue (blocking)
func (q *ValkeyQueue) Dequeue(ctx context.Context) (*models.ResolveLog, error) {
	// BLPOP with 5 second timeout
	cmd := q.client.B().Blpop().Key(q.key).Timeout(5).Build()
	result := q.client.Do(ctx, cmd)

	// Parse BLPOP result [key, value]
	values, err := result.AsStrSlice()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// AsStrSlice returns an error when BLPOP times out (valkey nil message)
		return nil, context.DeadlineExceeded
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("invalid BLPOP result: expected 2 values, got %d", len(values))
	}

	var rec models.ResolveLog
	if err := json.Unmarshal([]byte(values[1]), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resolve log: %w", err)
	}
	return &rec, nil
}

// Close closes the Valkey connection
func (q *ValkeyQueue) Close() error {
	q.client.Close()
	slog.Info("Valkey queue closed")
	return nil
}
