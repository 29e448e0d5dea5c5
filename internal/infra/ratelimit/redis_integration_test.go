//go:build integration
// +build integration

package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set")
	}
	ctx := context.Background()
	limiter, err := NewRedisLimiter(ctx, RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	defer limiter.Close()

	key := "test:" + uuid.NewString()
	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, key, 2, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	d, err := limiter.Allow(ctx, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected limit to be enforced, got %+v", d)
	}
	if !d.ResetAt.After(time.Now()) {
		t.Fatalf("expected reset in the future, got %v", d.ResetAt)
	}
}
