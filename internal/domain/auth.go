package domain

import "context"

type Principal struct {
	Subject string
	Email   string
	Role    Role
}

// Authenticator resolves an access token into the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (Principal, error)
}

// Authorizer checks role permissions. Resource ownership is decided by
// AccessPolicy.
type Authorizer interface {
	Require(principal Principal, permission string) error
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type TokenIssuer interface {
	IssuePair(user User) (TokenPair, error)
	ParseRefresh(token string) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
