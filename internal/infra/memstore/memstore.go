// Package memstore keeps every repository in process memory. It backs the
// server when no database is configured and is used throughout the tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"docsign/internal/domain"

	"github.com/google/uuid"
)

type Store struct {
	mu         sync.RWMutex
	users      map[string]userRow
	documents  map[string]documentRow
	signatures map[string]domain.Signature
	audit      []domain.AuditEntry
	seq        int64
	sigSeq     map[string]int64
}

type userRow struct {
	user    domain.User
	deleted bool
}

type documentRow struct {
	doc     domain.Document
	deleted bool
}

func New() *Store {
	return &Store{
		users:      make(map[string]userRow),
		documents:  make(map[string]documentRow),
		signatures: make(map[string]domain.Signature),
		sigSeq:     make(map[string]int64),
	}
}

func (s *Store) Users() *UserRepository           { return &UserRepository{s: s} }
func (s *Store) Documents() *DocumentRepository   { return &DocumentRepository{s: s} }
func (s *Store) Signatures() *SignatureRepository { return &SignatureRepository{s: s} }
func (s *Store) Audit() *AuditRepository          { return &AuditRepository{s: s} }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.users {
		if !row.deleted && strings.EqualFold(row.user.Email, user.Email) {
			return domain.User{}, domain.ErrConflict
		}
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
	r.s.users[user.ID] = userRow{user: user}
	return user, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.users[id]
	if !ok || row.deleted {
		return domain.User{}, domain.ErrNotFound
	}
	return row.user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, row := range r.s.users {
		if !row.deleted && strings.EqualFold(row.user.Email, email) {
			return row.user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *UserRepository) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.User, 0, len(r.s.users))
	for _, row := range r.s.users {
		if !row.deleted {
			out = append(out, row.user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Refs includes deleted users so historical entries keep their names.
func (r *UserRepository) Refs(_ context.Context, ids []string) (map[string]domain.UserRef, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]domain.UserRef, len(ids))
	for _, id := range ids {
		if row, ok := r.s.users[id]; ok {
			out[id] = row.user.Ref()
		}
	}
	return out, nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.mutate(id, func(user *domain.User) { user.PasswordHash = passwordHash })
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (domain.User, error) {
	if err := r.mutate(id, func(user *domain.User) { user.Role = role }); err != nil {
		return domain.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) SetRefreshTokenHash(_ context.Context, id, tokenHash string) error {
	return r.mutate(id, func(user *domain.User) { user.RefreshTokenHash = tokenHash })
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.users[id]
	if !ok || row.deleted {
		return domain.ErrNotFound
	}
	row.deleted = true
	row.user.RefreshTokenHash = ""
	r.s.users[id] = row
	return nil
}

func (r *UserRepository) mutate(id string, fn func(user *domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.users[id]
	if !ok || row.deleted {
		return domain.ErrNotFound
	}
	fn(&row.user)
	row.user.UpdatedAt = time.Now().UTC()
	r.s.users[id] = row
	return nil
}

type DocumentRepository struct {
	s *Store
}

func (r *DocumentRepository) Create(_ context.Context, doc domain.Document) (domain.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	r.s.documents[doc.ID] = documentRow{doc: doc}
	return doc, nil
}

func (r *DocumentRepository) GetByID(_ context.Context, id string) (domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.documents[id]
	if !ok || row.deleted {
		return domain.Document{}, domain.ErrNotFound
	}
	return row.doc, nil
}

func (r *DocumentRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Document, 0)
	for _, row := range r.s.documents {
		if !row.deleted && row.doc.OwnerID == ownerID {
			out = append(out, row.doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (r *DocumentRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	docs, err := r.ListByOwner(ctx, ownerID)
	return int64(len(docs)), err
}

func (r *DocumentRepository) UpdateLocation(_ context.Context, id string, loc domain.DocumentLocation) (domain.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.documents[id]
	if !ok || row.deleted {
		return domain.Document{}, domain.ErrNotFound
	}
	row.doc.Filename = loc.Filename
	row.doc.URL = loc.URL
	row.doc.StorageKey = loc.StorageKey
	row.doc.FileSize = loc.FileSize
	row.doc.Checksum = loc.Checksum
	row.doc.UploadedAt = loc.UploadedAt
	row.doc.MimeType = domain.PDFMimeType
	r.s.documents[id] = row
	return row.doc, nil
}

func (r *DocumentRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.documents[id]
	if !ok || row.deleted {
		return domain.ErrNotFound
	}
	row.deleted = true
	r.s.documents[id] = row
	return nil
}

type SignatureRepository struct {
	s *Store
}

func (r *SignatureRepository) Create(_ context.Context, sig domain.Signature) (domain.Signature, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.documents[sig.DocumentID]; !ok {
		return domain.Signature{}, domain.ErrConflict
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
	r.s.signatures[sig.ID] = sig
	r.s.sigSeq[sig.ID] = r.s.nextSeq()
	return sig, nil
}

func (r *SignatureRepository) ListByDocument(_ context.Context, documentID string) ([]domain.Signature, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Signature, 0)
	for _, sig := range r.s.signatures {
		if sig.DocumentID == documentID {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.sigSeq[out[i].ID] < r.s.sigSeq[out[j].ID] })
	return out, nil
}

func (r *SignatureRepository) MarkPendingSigned(_ context.Context, documentID string, at time.Time) (domain.FinalizeResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result domain.FinalizeResult
	for id, sig := range r.s.signatures {
		if sig.DocumentID != documentID || sig.Status != domain.SignatureStatusPending {
			continue
		}
		sig.Status = domain.SignatureStatusSigned
		sig.UpdatedAt = at
		r.s.signatures[id] = sig
		result.MatchedCount++
		result.ModifiedCount++
	}
	return result, nil
}

func (r *SignatureRepository) MarkRendered(_ context.Context, documentID string, ids []string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		sig, ok := r.s.signatures[id]
		if !ok || sig.DocumentID != documentID || sig.RenderedAt != nil {
			continue
		}
		stamped := at
		sig.RenderedAt = &stamped
		r.s.signatures[id] = sig
	}
	return nil
}

// SetStatus overwrites a status directly; the API never does this, tests do.
func (r *SignatureRepository) SetStatus(id string, status domain.SignatureStatus) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sig, ok := r.s.signatures[id]; ok {
		sig.Status = status
		r.s.signatures[id] = sig
	}
}

type AuditRepository struct {
	s *Store
}

func (r *AuditRepository) Append(_ context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	r.s.audit = append(r.s.audit, entry)
	return entry, nil
}

// ListByDocument returns newest first; entries sharing a timestamp keep
// reverse insertion order.
func (r *AuditRepository) ListByDocument(_ context.Context, documentID string) ([]domain.AuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.AuditEntry, 0)
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		if r.s.audit[i].DocumentID == documentID {
			out = append(out, r.s.audit[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
