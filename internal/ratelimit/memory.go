package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter *rate.Limiter
	limit   int
	seen    time.Time
}

// MemoryLimiter is a per-process token bucket limiter. Each key refills at
// limit tokens per window with a burst of limit.
type MemoryLimiter struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryLimiter creates a new in-memory limiter
func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow implements Limiter.
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int) (Result, error) {
	if limit <= 0 {
		return Unlimited{}.Allow(context.Background(), key, limit)
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || b.limit != limit {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(m.window/time.Duration(limit)), limit),
			limit:   limit,
		}
		m.buckets[key] = b
	}
	b.seen = now
	m.evict(now)

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// Time until the bucket is full again.
	perToken := m.window / time.Duration(limit)
	reset := now.Add(time.Duration(float64(limit)-tokens) * perToken)

	return Result{Allowed: allowed, Limit: limit, Remaining: remaining, Reset: reset}, nil
}

// evict drops buckets idle for more than one window; they would be full.
// Caller holds mu.
func (m *MemoryLimiter) evict(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.seen) > m.window {
			delete(m.buckets, k)
		}
	}
}
