package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"docsign/internal/domain"

	"github.com/go-playground/validator/v10"
)

type AccountService struct {
	Users                  UserRepository
	Documents              DocumentRepository
	Hasher                 domain.PasswordHasher
	Tokens                 domain.TokenIssuer
	AllowAdminRegistration bool
	Clock                  Clock

	validate *validator.Validate
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type LoginInput struct {
	Email    string
	Password string
}

type ChangePasswordInput struct {
	UserID      string
	OldPassword string
	NewPassword string
}

func NewAccountService(users UserRepository, documents DocumentRepository, hasher domain.PasswordHasher, tokens domain.TokenIssuer) *AccountService {
	return &AccountService{
		Users:                  users,
		Documents:              documents,
		Hasher:                 hasher,
		Tokens:                 tokens,
		AllowAdminRegistration: true,
		Clock:                  time.Now,
		validate:               validator.New(),
	}
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || strings.TrimSpace(input.Password) == "" {
		return domain.User{}, domain.Invalid("All fields are required")
	}
	role := domain.RoleCustomer
	if strings.TrimSpace(input.Role) != "" {
		parsed, ok := domain.ParseRole(input.Role)
		if !ok {
			return domain.User{}, domain.Invalid("Invalid role")
		}
		role = parsed
	}
	if role == domain.RoleAdmin && !s.AllowAdminRegistration {
		return domain.User{}, domain.Forbidden("Admin registration is disabled")
	}
	if err := s.validator().Var(email, "email"); err != nil {
		return domain.User{}, domain.Invalid("Invalid email address")
	}
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return domain.User{}, domain.Conflict("User with email already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := s.Hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, err
	}
	now := s.now().UTC()
	user, err := s.Users.Create(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.User{}, domain.Conflict("User with email already exists")
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AccountService) Login(ctx context.Context, input LoginInput) (domain.User, domain.TokenPair, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return domain.User{}, domain.TokenPair{}, domain.Unauthorized("Email and password are required")
	}
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, domain.NotFound("User does not exist")
		}
		return domain.User{}, domain.TokenPair{}, err
	}
	if err := s.Hasher.Compare(user.PasswordHash, input.Password); err != nil {
		return domain.User{}, domain.TokenPair{}, domain.Unauthorized("Invalid user credentials")
	}
	pair, err := s.rotate(ctx, user)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// be the one most recently issued to the user.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (domain.User, domain.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return domain.User{}, domain.TokenPair{}, domain.Unauthorized("Unauthorized request")
	}
	subject, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, domain.Unauthorized("Invalid refresh token")
	}
	user, err := s.Users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, domain.Unauthorized("Invalid refresh token")
		}
		return domain.User{}, domain.TokenPair{}, err
	}
	if user.RefreshTokenHash == "" || user.RefreshTokenHash != hashToken(refreshToken) {
		return domain.User{}, domain.TokenPair{}, domain.Unauthorized("Refresh token is expired or used")
	}
	pair, err := s.rotate(ctx, user)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return user, pair, nil
}

func (s *AccountService) Logout(ctx context.Context, userID string) error {
	if err := s.Users.SetRefreshTokenHash(ctx, userID, ""); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("User not found")
		}
		return err
	}
	return nil
}

func (s *AccountService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	if input.OldPassword == "" || input.NewPassword == "" {
		return domain.Invalid("oldPassword and newPassword are required")
	}
	user, err := s.Me(ctx, input.UserID)
	if err != nil {
		return err
	}
	if err := s.Hasher.Compare(user.PasswordHash, input.OldPassword); err != nil {
		return domain.Invalid("Invalid old password")
	}
	hash, err := s.Hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	return s.Users.UpdatePassword(ctx, user.ID, hash)
}

func (s *AccountService) Me(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.NotFound("User not found")
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.NotFound("No users found")
	}
	return users, nil
}

// DeleteUser refuses to remove an account that still owns live documents.
func (s *AccountService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if s.Documents != nil {
		owned, err := s.Documents.CountByOwner(ctx, user.ID)
		if err != nil {
			return err
		}
		if owned > 0 {
			return domain.Conflict("User still owns documents")
		}
	}
	if err := s.Users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("User not found")
		}
		return err
	}
	return nil
}

func (s *AccountService) UpdateRole(ctx context.Context, userID, rawRole string) (domain.User, error) {
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return domain.User{}, domain.Invalid("Invalid role")
	}
	user, err := s.Users.UpdateRole(ctx, userID, role)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.NotFound("User not found")
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AccountService) rotate(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	pair, err := s.Tokens.IssuePair(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := s.Users.SetRefreshTokenHash(ctx, user.ID, hashToken(pair.RefreshToken)); err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

func (s *AccountService) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s.validate
}

func (s *AccountService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
