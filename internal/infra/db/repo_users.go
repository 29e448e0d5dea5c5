package db

import (
	"context"
	"strings"
	"time"

	"docsign/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if r.db == nil {
		return domain.User{}, errDBUnavailable
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	model := userModelFromDomain(user)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.User{}, translateError(err)
	}
	return userFromModel(model), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	if r.db == nil {
		return domain.User{}, errDBUnavailable
	}
	var model UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.User{}, translateError(err)
	}
	return userFromModel(model), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if r.db == nil {
		return domain.User{}, errDBUnavailable
	}
	var model UserModel
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error
	if err != nil {
		return domain.User{}, translateError(err)
	}
	return userFromModel(model), nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []UserModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.User, 0, len(models))
	for _, model := range models {
		out = append(out, userFromModel(model))
	}
	return out, nil
}

// Refs resolves soft-deleted users too, so history keeps its names.
func (r *UserRepository) Refs(ctx context.Context, ids []string) (map[string]domain.UserRef, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	out := make(map[string]domain.UserRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []UserModel
	err := r.db.WithContext(ctx).Unscoped().
		Select("id", "name", "email").
		Where("id IN ?", ids).
		Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}
	for _, model := range models {
		out[model.ID] = domain.UserRef{ID: model.ID, Name: model.Name, Email: model.Email}
	}
	return out, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, map[string]any{"password_hash": passwordHash})
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (domain.User, error) {
	if err := r.update(ctx, id, map[string]any{"role": string(role)}); err != nil {
		return domain.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, id, tokenHash string) error {
	return r.update(ctx, id, map[string]any{"refresh_token_hash": stringPtrIfNotEmpty(tokenHash)})
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Delete(&UserModel{}, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) update(ctx context.Context, id string, fields map[string]any) error {
	if r.db == nil {
		return errDBUnavailable
	}
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func userModelFromDomain(user domain.User) UserModel {
	return UserModel{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		PasswordHash:     user.PasswordHash,
		Role:             string(user.Role),
		RefreshTokenHash: stringPtrIfNotEmpty(user.RefreshTokenHash),
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
}

func userFromModel(model UserModel) domain.User {
	return domain.User{
		ID:               model.ID,
		Name:             model.Name,
		Email:            model.Email,
		PasswordHash:     model.PasswordHash,
		Role:             domain.Role(model.Role),
		RefreshTokenHash: stringValue(model.RefreshTokenHash),
		CreatedAt:        model.CreatedAt.UTC(),
		UpdatedAt:        model.UpdatedAt.UTC(),
	}
}
