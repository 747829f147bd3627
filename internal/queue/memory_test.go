package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nebari-dev/refstore/internal/models"
)

func TestMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewMemoryQueue(2)
	defer q.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, &models.ResolveLog{Ref: "a/b"}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- q.Enqueue(ctx, &models.ResolveLog{Ref: "a/c"}) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueFull) {
			t.Errorf("expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}
}

func TestMemoryQueue_FIFOAndClose(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	q.Enqueue(ctx, &models.ResolveLog{Ref: "first"})
	q.Enqueue(ctx, &models.ResolveLog{Ref: "second"})
	q.Close()

	if err := q.Enqueue(ctx, &models.ResolveLog{}); !errors.Is(err, ErrClosed) {
		t.Errorf("enqueue after close: expected ErrClosed, got %v", err)
	}

	for _, want := range []string{"first", "second"} {
		rec, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if rec.Ref != want {
			t.Errorf("dequeued %q, want %q", rec.Ref, want)
		}
	}
	if _, err := q.Dequeue(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("drained queue: expected ErrClosed, got %v", err)
	}
	// Closing twice is harmless
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestMemoryQueue_DequeueHonorsContext(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}
