package rbac

import (
	"errors"
	"strings"

	"docsign/internal/domain"
)

const (
	PermDocumentRead   = "document:read"
	PermDocumentWrite  = "document:write"
	PermSignatureWrite = "signature:write"
	PermSignatureRead  = "signature:read"
	PermAuditRead      = "audit:read"
	PermAccountSelf    = "account:self"
	PermAdminUsers     = "admin:users"

	adminPrefix = "admin:"
)

type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Authorizer grants permissions by role. Whether the caller may touch a
// particular document is decided separately by the access policy.
type Authorizer struct {
	grants map[domain.Role]map[string]struct{}
}

func NewAuthorizer() *Authorizer {
	member := []string{
		PermDocumentRead,
		PermDocumentWrite,
		PermSignatureWrite,
		PermSignatureRead,
		PermAuditRead,
		PermAccountSelf,
	}
	return &Authorizer{
		grants: map[domain.Role]map[string]struct{}{
			domain.RoleCustomer: toSet(member),
			domain.RoleTailor:   toSet(member),
			domain.RoleAdmin:    toSet(append(member, PermAdminUsers)),
		},
	}
}

func (a *Authorizer) Require(principal domain.Principal, permission string) error {
	if principal.Subject == "" {
		return domain.ErrUnauthorized
	}
	if permission == "" {
		return nil
	}
	grants, ok := a.grants[principal.Role]
	if !ok {
		return &AuthzError{Code: "UNKNOWN_ROLE", Err: domain.ErrForbidden}
	}
	if _, ok := grants[permission]; ok {
		return nil
	}
	if strings.HasPrefix(permission, adminPrefix) {
		return &AuthzError{Code: "MISSING_ROLE", Err: domain.ErrForbidden}
	}
	return &AuthzError{Code: "MISSING_PERMISSION", Err: domain.ErrForbidden}
}

func toSet(perms []string) map[string]struct{} {
	out := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		out[p] = struct{}{}
	}
	return out
}

func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}
