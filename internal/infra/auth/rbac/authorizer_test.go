package rbac

import (
	"errors"
	"testing"

	"docsign/internal/domain"
)

func TestRequire(t *testing.T) {
	authz := NewAuthorizer()
	tests := []struct {
		name      string
		principal domain.Principal
		perm      string
		wantCode  string
		wantErr   error
	}{
		{name: "customer reads documents", principal: domain.Principal{Subject: "u1", Role: domain.RoleCustomer}, perm: PermDocumentRead},
		{name: "tailor places signatures", principal: domain.Principal{Subject: "u2", Role: domain.RoleTailor}, perm: PermSignatureWrite},
		{name: "admin lists users", principal: domain.Principal{Subject: "a1", Role: domain.RoleAdmin}, perm: PermAdminUsers},
		{name: "empty permission", principal: domain.Principal{Subject: "u1", Role: domain.RoleCustomer}},
		{
			name:      "customer lists users",
			principal: domain.Principal{Subject: "u1", Role: domain.RoleCustomer},
			perm:      PermAdminUsers,
			wantCode:  "MISSING_ROLE",
			wantErr:   domain.ErrForbidden,
		},
		{
			name:      "unknown permission",
			principal: domain.Principal{Subject: "u1", Role: domain.RoleTailor},
			perm:      "billing:write",
			wantCode:  "MISSING_PERMISSION",
			wantErr:   domain.ErrForbidden,
		},
		{
			name:      "unknown role",
			principal: domain.Principal{Subject: "u1", Role: domain.Role("guest")},
			perm:      PermDocumentRead,
			wantCode:  "UNKNOWN_ROLE",
			wantErr:   domain.ErrForbidden,
		},
		{
			name:    "anonymous",
			perm:    PermDocumentRead,
			wantErr: domain.ErrUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.Require(tt.principal, tt.perm)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantCode == "" {
				return
			}
			authzErr, ok := IsAuthzError(err)
			if !ok || authzErr.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %v", tt.wantCode, err)
			}
		})
	}
}
