package db

import (
	"context"
	"time"

	"docsign/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if r.db == nil {
		return domain.Document{}, errDBUnavailable
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	model := documentModelFromDomain(doc)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Document{}, translateError(err)
	}
	return documentFromModel(model), nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (domain.Document, error) {
	if r.db == nil {
		return domain.Document{}, errDBUnavailable
	}
	var model DocumentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.Document{}, translateError(err)
	}
	return documentFromModel(model), nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DocumentModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("uploaded_at DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.Document, 0, len(models))
	for _, model := range models {
		out = append(out, documentFromModel(model))
	}
	return out, nil
}

func (r *DocumentRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&DocumentModel{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (r *DocumentRepository) UpdateLocation(ctx context.Context, id string, loc domain.DocumentLocation) (domain.Document, error) {
	if r.db == nil {
		return domain.Document{}, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&DocumentModel{}).Where("id = ?", id).Updates(map[string]any{
		"filename":    loc.Filename,
		"url":         loc.URL,
		"storage_key": loc.StorageKey,
		"file_size":   loc.FileSize,
		"checksum":    stringPtrIfNotEmpty(loc.Checksum),
		"uploaded_at": loc.UploadedAt.UTC(),
		"updated_at":  time.Now().UTC(),
	})
	if res.Error != nil {
		return domain.Document{}, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Document{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete soft-deletes; signatures and audit entries keep referencing the row.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Delete(&DocumentModel{}, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func documentModelFromDomain(doc domain.Document) DocumentModel {
	return DocumentModel{
		ID:         doc.ID,
		OwnerID:    doc.OwnerID,
		Filename:   doc.Filename,
		URL:        doc.URL,
		StorageKey: doc.StorageKey,
		FileSize:   doc.FileSize,
		MimeType:   doc.MimeType,
		PageCount:  doc.PageCount,
		Checksum:   stringPtrIfNotEmpty(doc.Checksum),
		UploadedAt: doc.UploadedAt,
	}
}

func documentFromModel(model DocumentModel) domain.Document {
	return domain.Document{
		ID:         model.ID,
		OwnerID:    model.OwnerID,
		Filename:   model.Filename,
		URL:        model.URL,
		StorageKey: model.StorageKey,
		FileSize:   model.FileSize,
		MimeType:   model.MimeType,
		PageCount:  model.PageCount,
		Checksum:   stringValue(model.Checksum),
		UploadedAt: model.UploadedAt.UTC(),
	}
}
