package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestMemoryLimiterWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: clock.Now})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !d.Allowed || d.Remaining != 2-i {
			t.Fatalf("request %d: unexpected decision %+v", i+1, d)
		}
	}
	d, _ := limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected fourth request to be limited, got %+v", d)
	}
	if !d.ResetAt.Equal(clock.t.Add(time.Minute)) {
		t.Fatalf("unexpected reset time %v", d.ResetAt)
	}

	other, _ := limiter.Allow(ctx, "5.6.7.8", 3, time.Minute)
	if !other.Allowed {
		t.Fatal("expected other key to be independent")
	}

	clock.t = clock.t.Add(time.Minute)
	d, _ = limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
	if !d.Allowed || d.Remaining != 2 {
		t.Fatalf("expected new window after reset, got %+v", d)
	}
}

func TestMemoryLimiterCapacity(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: clock.Now, MaxKeys: 2})
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "a", 1, time.Second)
	_, _ = limiter.Allow(ctx, "b", 1, time.Second)
	if _, err := limiter.Allow(ctx, "c", 1, time.Second); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}

	clock.t = clock.t.Add(2 * time.Second)
	if _, err := limiter.Allow(ctx, "c", 1, time.Second); err != nil {
		t.Fatalf("expected expired keys to be evicted: %v", err)
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected 1 tracked key, got %d", limiter.Len())
	}
}

func TestMemoryLimiterDisabled(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	d, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
	if err != nil || !d.Allowed {
		t.Fatalf("expected zero limit to allow everything, got %+v %v", d, err)
	}
}
