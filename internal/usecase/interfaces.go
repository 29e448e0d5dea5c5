package usecase

import (
	"context"
	"time"

	"docsign/internal/domain"
)

type Clock func() time.Time

type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Refs(ctx context.Context, ids []string) (map[string]domain.UserRef, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role domain.Role) (domain.User, error)
	SetRefreshTokenHash(ctx context.Context, id, tokenHash string) error
	Delete(ctx context.Context, id string) error
}

type DocumentRepository interface {
	Create(ctx context.Context, doc domain.Document) (domain.Document, error)
	GetByID(ctx context.Context, id string) (domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	UpdateLocation(ctx context.Context, id string, loc domain.DocumentLocation) (domain.Document, error)
	Delete(ctx context.Context, id string) error
}

type SignatureRepository interface {
	Create(ctx context.Context, sig domain.Signature) (domain.Signature, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.Signature, error)
	// MarkPendingSigned moves every pending signature of the document to
	// signed in one statement.
	MarkPendingSigned(ctx context.Context, documentID string, at time.Time) (domain.FinalizeResult, error)
	// MarkRendered stamps RenderedAt on the listed signatures of the
	// document that have not been rendered yet.
	MarkRendered(ctx context.Context, documentID string, ids []string, at time.Time) error
}

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.AuditEntry, error)
}
