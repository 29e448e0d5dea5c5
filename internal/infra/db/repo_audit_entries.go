package db

import (
	"context"
	"errors"
	"time"

	"docsign/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if r.db == nil {
		return domain.AuditEntry{}, errDBUnavailable
	}
	if entry.DocumentID == "" || entry.Action == "" {
		return domain.AuditEntry{}, errors.New("document_id and action are required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Timestamp = entry.Timestamp.UTC().Truncate(time.Microsecond)
	model := AuditEntryModel{
		ID:         entry.ID,
		DocumentID: entry.DocumentID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		IP:         stringPtrIfNotEmpty(entry.IP),
		Timestamp:  entry.Timestamp,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEntry{}, translateError(err)
	}
	return entry, nil
}

// ListByDocument returns newest first. seq breaks timestamp ties so entries
// written in the same microsecond keep reverse insertion order.
func (r *AuditRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.AuditEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AuditEntryModel
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("timestamp DESC, seq DESC").
		Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.AuditEntry, 0, len(models))
	for _, model := range models {
		out = append(out, domain.AuditEntry{
			ID:         model.ID,
			DocumentID: model.DocumentID,
			UserID:     model.UserID,
			Action:     model.Action,
			IP:         stringValue(model.IP),
			Timestamp:  model.Timestamp.UTC(),
		})
	}
	return out, nil
}
