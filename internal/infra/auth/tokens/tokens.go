package tokens

import (
	"context"
	"errors"
	"strings"
	"time"

	"docsign/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Service signs HS256 access and refresh tokens with separate secrets.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func New(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (s *Service) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Service) IssuePair(user domain.User) (domain.TokenPair, error) {
	access, err := s.sign(s.accessSecret, s.accessTTL, Claims{
		Email:     user.Email,
		Role:      string(user.Role),
		TokenType: tokenTypeAccess,
	}, user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.sign(s.refreshSecret, s.refreshTTL, Claims{TokenType: tokenTypeRefresh}, user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Authenticate resolves an access token. Role and email come from the
// token; they are refreshed whenever a new pair is issued.
func (s *Service) Authenticate(_ context.Context, accessToken string) (domain.Principal, error) {
	claims, err := s.parse(s.accessSecret, accessToken, tokenTypeAccess)
	if err != nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return domain.Principal{Subject: claims.Subject, Email: claims.Email, Role: role}, nil
}

func (s *Service) ParseRefresh(token string) (string, error) {
	claims, err := s.parse(s.refreshSecret, token, tokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *Service) sign(secret []byte, ttl time.Duration, claims Claims, subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	now := s.now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *Service) parse(secret []byte, tokenString, tokenType string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, domain.ErrUnauthorized
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
