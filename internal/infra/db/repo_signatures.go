package db

import (
	"context"
	"time"

	"docsign/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SignatureRepository struct {
	db *gorm.DB
}

func NewSignatureRepository(db *gorm.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

func (r *SignatureRepository) Create(ctx context.Context, sig domain.Signature) (domain.Signature, error) {
	if r.db == nil {
		return domain.Signature{}, errDBUnavailable
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}
	if sig.UpdatedAt.IsZero() {
		sig.UpdatedAt = sig.CreatedAt
	}
	model := signatureModelFromDomain(sig)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Signature{}, translateError(err)
	}
	return signatureFromModel(model), nil
}

func (r *SignatureRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Signature, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SignatureModel
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.Signature, 0, len(models))
	for _, model := range models {
		out = append(out, signatureFromModel(model))
	}
	return out, nil
}

// MarkPendingSigned is a single UPDATE. Every matched row changes status, so
// matched and modified counts are equal.
func (r *SignatureRepository) MarkPendingSigned(ctx context.Context, documentID string, at time.Time) (domain.FinalizeResult, error) {
	if r.db == nil {
		return domain.FinalizeResult{}, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&SignatureModel{}).
		Where("document_id = ? AND status = ?", documentID, string(domain.SignatureStatusPending)).
		Updates(map[string]any{
			"status":     string(domain.SignatureStatusSigned),
			"updated_at": at.UTC(),
		})
	if res.Error != nil {
		return domain.FinalizeResult{}, translateError(res.Error)
	}
	return domain.FinalizeResult{MatchedCount: res.RowsAffected, ModifiedCount: res.RowsAffected}, nil
}

// MarkRendered leaves rows that already carry a render time untouched.
func (r *SignatureRepository) MarkRendered(ctx context.Context, documentID string, ids []string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if len(ids) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&SignatureModel{}).
		Where("document_id = ? AND id IN ? AND rendered_at IS NULL", documentID, ids).
		Update("rendered_at", at.UTC())
	return translateError(res.Error)
}

func signatureModelFromDomain(sig domain.Signature) SignatureModel {
	return SignatureModel{
		ID:              sig.ID,
		DocumentID:      sig.DocumentID,
		UserID:          sig.UserID,
		Page:            sig.Placement.Page,
		X:               sig.Placement.X,
		Y:               sig.Placement.Y,
		Width:           sig.Placement.Width,
		Height:          sig.Placement.Height,
		Status:          string(sig.Status),
		Reason:          stringPtrIfNotEmpty(sig.Reason),
		ImageURL:        sig.ImageURL,
		ImageStorageKey: sig.ImageStorageKey,
		RenderedAt:      sig.RenderedAt,
		CreatedAt:       sig.CreatedAt,
		UpdatedAt:       sig.UpdatedAt,
	}
}

func signatureFromModel(model SignatureModel) domain.Signature {
	return domain.Signature{
		ID:         model.ID,
		DocumentID: model.DocumentID,
		UserID:     model.UserID,
		Placement: domain.Placement{
			Page:   model.Page,
			X:      model.X,
			Y:      model.Y,
			Width:  model.Width,
			Height: model.Height,
		},
		Status:          domain.SignatureStatus(model.Status),
		Reason:          stringValue(model.Reason),
		ImageURL:        model.ImageURL,
		ImageStorageKey: model.ImageStorageKey,
		RenderedAt:      utcPtr(model.RenderedAt),
		CreatedAt:       model.CreatedAt.UTC(),
		UpdatedAt:       model.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
