package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleTailor   Role = "tailor"
)

// Roles is the complete role set. Registration and role updates both
// validate against it.
var Roles = []Role{RoleCustomer, RoleAdmin, RoleTailor}

func ParseRole(raw string) (Role, bool) {
	value := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, role := range Roles {
		if role == value {
			return role, true
		}
	}
	return "", false
}

type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Role             Role
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UserRef is the display projection attached to signatures and audit
// entries.
type UserRef struct {
	ID    string
	Name  string
	Email string
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}
