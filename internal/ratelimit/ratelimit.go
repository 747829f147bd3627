// Package ratelimit enforces per-credential request quotas.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one quota check, echoed to callers as
// X-RateLimit-* headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter performs a pre-flight allow/deny check for key against limit
// requests per window. A limit <= 0 means unlimited.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) (Result, error)
}

// Unlimited allows every request.
type Unlimited struct{}

// Allow implements Limiter.
func (Unlimited) Allow(_ context.Context, _ string, limit int) (Result, error) {
	return Result{Allowed: true, Limit: limit, Remaining: limit}, nil
}
