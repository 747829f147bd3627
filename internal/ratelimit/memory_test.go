package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_Exhausts(t *testing.T) {
	l := NewMemoryLimiter(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "cred", 3)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("request %d denied", i+1)
		}
		if res.Remaining != 2-i {
			t.Errorf("request %d: remaining = %d, want %d", i+1, res.Remaining, 2-i)
		}
	}

	res, _ := l.Allow(ctx, "cred", 3)
	if res.Allowed {
		t.Fatal("fourth request allowed")
	}
	if !res.Reset.After(now) {
		t.Errorf("reset %v not after now", res.Reset)
	}

	// Another key has its own bucket.
	if res, _ := l.Allow(ctx, "other", 3); !res.Allowed {
		t.Error("other key denied")
	}

	// One token refills after window/limit.
	now = now.Add(20 * time.Second)
	if res, _ := l.Allow(ctx, "cred", 3); !res.Allowed {
		t.Error("expected refill after 20s")
	}
}

func TestMemoryLimiter_Unlimited(t *testing.T) {
	l := NewMemoryLimiter(time.Minute)
	for i := 0; i < 100; i++ {
		if res, _ := l.Allow(context.Background(), "cred", 0); !res.Allowed {
			t.Fatal("zero limit must not deny")
		}
	}
	if len(l.buckets) != 0 {
		t.Errorf("unlimited keys should not allocate buckets, got %d", len(l.buckets))
	}
}

func TestMemoryLimiter_EvictsIdle(t *testing.T) {
	l := NewMemoryLimiter(time.Second)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.Allow(context.Background(), "a", 5)
	now = now.Add(2 * time.Second)
	l.Allow(context.Background(), "b", 5)

	if _, ok := l.buckets["a"]; ok {
		t.Error("idle bucket not evicted")
	}
}
