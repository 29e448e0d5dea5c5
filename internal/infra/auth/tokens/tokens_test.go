package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"docsign/internal/domain"
)

func newService(t *testing.T) *Service {
	t.Helper()
	svc, err := New("access-secret", "refresh-secret", "docsign", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func testUser() domain.User {
	return domain.User{ID: "user-1", Email: "a@example.com", Role: domain.RoleTailor}
}

func TestIssueAndAuthenticate(t *testing.T) {
	svc := newService(t)
	pair, err := svc.IssuePair(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	principal, err := svc.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.Subject != "user-1" || principal.Email != "a@example.com" || principal.Role != domain.RoleTailor {
		t.Fatalf("unexpected principal: %+v", principal)
	}
	subject, err := svc.ParseRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("unexpected refresh subject %q", subject)
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	svc := newService(t)
	pair, err := svc.IssuePair(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), pair.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected refresh token to be rejected as access token, got %v", err)
	}
	if _, err := svc.ParseRefresh(pair.AccessToken); err == nil {
		t.Fatal("expected access token to be rejected as refresh token")
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	svc := newService(t)
	first, _ := svc.IssuePair(testUser())
	second, _ := svc.IssuePair(testUser())
	if first.RefreshToken == second.RefreshToken {
		t.Fatal("expected distinct refresh tokens")
	}
}

func TestExpiredToken(t *testing.T) {
	svc := newService(t)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	pair, err := svc.IssuePair(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := svc.Authenticate(context.Background(), pair.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected expired access token to be rejected, got %v", err)
	}
	if _, err := svc.ParseRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("expected refresh token to still be valid: %v", err)
	}
}

func TestWrongSecretOrIssuer(t *testing.T) {
	svc := newService(t)
	pair, _ := svc.IssuePair(testUser())

	other, err := New("other-access", "other-refresh", "docsign", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new other: %v", err)
	}
	if _, err := other.Authenticate(context.Background(), pair.AccessToken); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}

	foreign, err := New("access-secret", "refresh-secret", "someone-else", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new foreign: %v", err)
	}
	if _, err := foreign.Authenticate(context.Background(), pair.AccessToken); err == nil {
		t.Fatal("expected token from another issuer to be rejected")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cases := []struct {
		name            string
		access, refresh string
		ttl             time.Duration
	}{
		{name: "missing secrets", ttl: time.Minute},
		{name: "same secrets", access: "x", refresh: "x", ttl: time.Minute},
		{name: "zero ttl", access: "a", refresh: "b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.access, tc.refresh, "docsign", tc.ttl, tc.ttl); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
