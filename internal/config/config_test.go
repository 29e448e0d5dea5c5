package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("RATE_LIMIT_REQUESTS", "")
	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh ttl, got %s", cfg.RefreshTokenTTL)
	}
	if cfg.RateLimitRequests != 100 || cfg.RateLimitWindow() != 15*time.Minute {
		t.Fatalf("unexpected rate limit defaults: %d/%s", cfg.RateLimitRequests, cfg.RateLimitWindow())
	}
}

func TestEnvDurationDefault(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "duration", value: "90s", want: 90 * time.Second},
		{name: "seconds", value: "30", want: 30 * time.Second},
		{name: "garbage", value: "soon", want: time.Minute},
		{name: "negative", value: "-5s", want: time.Minute},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := envDurationDefault("TEST_DURATION", time.Minute); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	if !(Config{AppEnv: "Production"}).IsProduction() {
		t.Fatalf("expected production")
	}
	if (Config{AppEnv: "development"}).IsProduction() {
		t.Fatalf("expected non-production")
	}
}
