package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"docsign/internal/domain"
)

func TestEngineDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	input := ownerInput()

	first, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate first: %v", err)
	}
	second, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected deterministic policy evaluation")
	}
	if !first.Allow || len(first.Deny) != 0 {
		t.Fatalf("expected owner to be allowed, got %+v", first)
	}
	if engine.Hash() == "" {
		t.Fatalf("expected policy hash")
	}
}

func TestEngineAccessDecisions(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name      string
		mutate    func(input *domain.AccessInput)
		wantAllow bool
		wantDeny  string
	}{
		{
			name:      "owner",
			mutate:    func(*domain.AccessInput) {},
			wantAllow: true,
		},
		{
			name: "admin on someone else's document",
			mutate: func(input *domain.AccessInput) {
				input.Subject = domain.AccessSubject{ID: "admin-1", Role: "admin"}
			},
			wantAllow: true,
		},
		{
			name: "other customer",
			mutate: func(input *domain.AccessInput) {
				input.Subject = domain.AccessSubject{ID: "user-2", Role: "customer"}
			},
			wantDeny: "NOT_OWNER",
		},
		{
			name: "tailor is not admin",
			mutate: func(input *domain.AccessInput) {
				input.Subject = domain.AccessSubject{ID: "user-3", Role: "tailor"}
				input.Action = domain.ActionDocumentDelete
			},
			wantDeny: "NOT_OWNER",
		},
		{
			name: "anonymous",
			mutate: func(input *domain.AccessInput) {
				input.Subject = domain.AccessSubject{}
			},
			wantDeny: "UNAUTHENTICATED",
		},
		{
			name: "resource without owner",
			mutate: func(input *domain.AccessInput) {
				input.Resource.OwnerID = ""
			},
			wantDeny: "NOT_OWNER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := ownerInput()
			tt.mutate(&input)
			out, err := engine.Evaluate(context.Background(), input)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if out.Allow != tt.wantAllow {
				t.Fatalf("expected allow=%v, got %+v", tt.wantAllow, out)
			}
			if tt.wantDeny == "" {
				if len(out.Deny) != 0 {
					t.Fatalf("expected no deny entries, got %+v", out.Deny)
				}
				return
			}
			if len(out.Deny) != 1 || out.Deny[0].Code != tt.wantDeny {
				t.Fatalf("expected deny %s, got %+v", tt.wantDeny, out.Deny)
			}
		})
	}
}

func TestEngineFromBundlePath(t *testing.T) {
	dir := t.TempDir()
	policy := `package docsign.access
result := {"allow": false, "deny": [{"code": "LOCKED", "message": "Documents are read-only"}]}`
	if err := os.WriteFile(filepath.Join(dir, "locked.rego"), []byte(policy), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}
	engine, err := NewEngine(context.Background(), dir)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	out, err := engine.Evaluate(context.Background(), ownerInput())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out.Allow || out.Deny[0].Code != "LOCKED" {
		t.Fatalf("expected bundle policy to apply, got %+v", out)
	}
	if engine.Source() != dir {
		t.Fatalf("expected source %s, got %s", dir, engine.Source())
	}
}

func TestEngineRejectsEmptyBundle(t *testing.T) {
	if _, err := NewEngineFromBundlePath(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error for bundle without modules")
	}
}

func TestEngineRejectsTimeBuiltin(t *testing.T) {
	rejectBuiltin(t, "time.now_ns()")
}

func TestEngineRejectsHttpSend(t *testing.T) {
	rejectBuiltin(t, "http.send({\"method\": \"get\", \"url\": \"https://example.com\"})")
}

func TestEngineRejectsRand(t *testing.T) {
	rejectBuiltin(t, "rand.intn(\"k\", 10)")
}

func rejectBuiltin(t *testing.T, expr string) {
	t.Helper()
	dir := t.TempDir()
	regoContent := `package docsign.access
result := {"allow": true, "deny": []} {
  ` + expr + `
}`
	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(regoContent), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}
	if _, err := NewEngineFromBundlePath(context.Background(), dir); err == nil {
		t.Fatalf("expected builtin to be rejected")
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), "")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func ownerInput() domain.AccessInput {
	return domain.AccessInput{
		Action:  domain.ActionDocumentRead,
		Subject: domain.AccessSubject{ID: "user-1", Role: "customer"},
		Resource: domain.AccessResource{
			Type:    "document",
			ID:      "doc-1",
			OwnerID: "user-1",
		},
	}
}
