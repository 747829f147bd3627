package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyLimiter is a fixed-window counter shared by every server replica.
type ValkeyLimiter struct {
	client valkey.Client
	window time.Duration
	prefix string
}

// NewValkeyLimiter connects to Valkey and verifies the connection
func NewValkeyLimiter(addr string, window time.Duration) (*ValkeyLimiter, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Info("Initialized Valkey rate limiter", "address", addr, "window", window.String())
	return &ValkeyLimiter{client: client, window: window, prefix: "refstore:ratelimit:"}, nil
}

// Allow implements Limiter. The counter key embeds the window start so each
// window starts from zero; the key expires with its window.
func (v *ValkeyLimiter) Allow(ctx context.Context, key string, limit int) (Result, error) {
	if limit <= 0 {
		return Unlimited{}.Allow(ctx, key, limit)
	}

	now := time.Now()
	start := now.Truncate(v.window)
	reset := start.Add(v.window)
	counter := v.prefix + key + ":" + strconv.FormatInt(start.Unix(), 10)

	count, err := v.client.Do(ctx, v.client.B().Incr().Key(counter).Build()).AsInt64()
	if err != nil {
		return Result{}, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if count == 1 {
		cmd := v.client.B().Pexpire().Key(counter).Milliseconds(v.window.Milliseconds()).Build()
		if err := v.client.Do(ctx, cmd).Error(); err != nil {
			return Result{}, fmt.Errorf("failed to set rate counter expiry: %w", err)
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: int(count) <= limit, Limit: limit, Remaining: remaining, Reset: reset}, nil
}

// Close closes the Valkey connection
func (v *ValkeyLimiter) Close() error {
	v.client.Close()
	return nil
}
