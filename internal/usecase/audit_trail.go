package usecase

import (
	"context"
	"errors"
	"time"

	"docsign/internal/domain"
)

// AuditTrail appends and reads the per-document action log.
type AuditTrail struct {
	Repo      AuditRepository
	Users     UserRepository
	Documents DocumentRepository
	Policy    domain.AccessPolicy
	Clock     Clock
}

func NewAuditTrail(repo AuditRepository, users UserRepository, documents DocumentRepository, policy domain.AccessPolicy) *AuditTrail {
	return &AuditTrail{
		Repo:      repo,
		Users:     users,
		Documents: documents,
		Policy:    policy,
		Clock:     time.Now,
	}
}

func (a *AuditTrail) Record(ctx context.Context, documentID, userID, action, ip string) (domain.AuditEntry, error) {
	if a == nil || a.Repo == nil {
		return domain.AuditEntry{}, errors.New("audit repository required")
	}
	if documentID == "" || userID == "" || action == "" {
		return domain.AuditEntry{}, errors.New("audit entry missing required fields")
	}
	return a.Repo.Append(ctx, domain.AuditEntry{
		DocumentID: documentID,
		UserID:     userID,
		Action:     action,
		IP:         ip,
		Timestamp:  a.now().UTC(),
	})
}

// ListByDocument returns entries newest first. A document without entries
// is reported as not found.
func (a *AuditTrail) ListByDocument(ctx context.Context, principal domain.Principal, documentID string) ([]domain.AuditEntryView, error) {
	doc, err := loadDocument(ctx, a.Documents, documentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeDocument(ctx, a.Policy, principal, domain.ActionAuditRead, doc); err != nil {
		return nil, err
	}
	entries, err := a.Repo.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.NotFound("No audit logs found for this document")
	}
	refs, err := a.Users.Refs(ctx, userIDs(entries, func(e domain.AuditEntry) string { return e.UserID }))
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuditEntryView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, domain.AuditEntryView{AuditEntry: entry, User: refs[entry.UserID]})
	}
	return out, nil
}

func (a *AuditTrail) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now()
}
