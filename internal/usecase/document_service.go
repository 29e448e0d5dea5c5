package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"docsign/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DocumentService struct {
	Documents  DocumentRepository
	Signatures SignatureRepository
	Store      domain.ObjectStore
	Inspector  domain.PDFInspector
	Policy     domain.AccessPolicy
	Audit      *AuditTrail
	Log        *zap.Logger
	Clock      Clock
}

type UploadInput struct {
	Principal domain.Principal
	Filename  string
	Content   []byte
}

type ReplaceSignedInput struct {
	Principal  domain.Principal
	DocumentID string
	Filename   string
	Content    []byte
	IP         string
}

func NewDocumentService(documents DocumentRepository, signatures SignatureRepository, store domain.ObjectStore, inspector domain.PDFInspector, policy domain.AccessPolicy, audit *AuditTrail, log *zap.Logger) *DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentService{
		Documents:  documents,
		Signatures: signatures,
		Store:      store,
		Inspector:  inspector,
		Policy:     policy,
		Audit:      audit,
		Log:        log,
		Clock:      time.Now,
	}
}

// Upload validates the file before anything is stored.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (domain.Document, error) {
	if input.Principal.Subject == "" {
		return domain.Document{}, domain.Unauthorized("Unauthorized request")
	}
	if len(input.Content) == 0 {
		return domain.Document{}, domain.Invalid("No file uploaded")
	}
	filename := cleanFilename(input.Filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return domain.Document{}, domain.Invalid("Only PDF files are allowed")
	}
	info, err := s.validatePDF(input.Content)
	if err != nil {
		return domain.Document{}, err
	}

	key := documentKey(input.Principal.Subject)
	stored, err := s.Store.Put(ctx, key, bytes.NewReader(input.Content), int64(len(input.Content)), domain.PDFMimeType)
	if err != nil {
		return domain.Document{}, domain.StorageFailure("Failed to upload document", err)
	}
	doc, err := s.Documents.Create(ctx, domain.Document{
		OwnerID:    input.Principal.Subject,
		Filename:   filename,
		URL:        stored.URL,
		StorageKey: stored.Key,
		FileSize:   int64(len(input.Content)),
		MimeType:   domain.PDFMimeType,
		PageCount:  info.PageCount,
		Checksum:   checksum(input.Content),
		UploadedAt: s.now().UTC(),
	})
	if err != nil {
		s.discard(ctx, stored.Key)
		return domain.Document{}, err
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, principal domain.Principal) ([]domain.Document, error) {
	if principal.Subject == "" {
		return nil, domain.Unauthorized("Unauthorized request")
	}
	return s.Documents.ListByOwner(ctx, principal.Subject)
}

func (s *DocumentService) Get(ctx context.Context, principal domain.Principal, id string) (domain.Document, error) {
	return s.authorized(ctx, principal, id, domain.ActionDocumentRead)
}

// Open returns the stored PDF. The caller closes the reader.
func (s *DocumentService) Open(ctx context.Context, principal domain.Principal, id string) (domain.Document, io.ReadCloser, error) {
	doc, err := s.authorized(ctx, principal, id, domain.ActionDocumentRead)
	if err != nil {
		return domain.Document{}, nil, err
	}
	body, err := s.Store.Get(ctx, doc.StorageKey)
	if err != nil {
		return domain.Document{}, nil, domain.StorageFailure("Failed to fetch document", err)
	}
	return doc, body, nil
}

func (s *DocumentService) URL(ctx context.Context, principal domain.Principal, id string) (domain.Document, string, error) {
	doc, err := s.authorized(ctx, principal, id, domain.ActionDocumentRead)
	if err != nil {
		return domain.Document{}, "", err
	}
	url, err := s.Store.URL(ctx, doc.StorageKey)
	if err != nil {
		return domain.Document{}, "", domain.StorageFailure("Failed to resolve document URL", err)
	}
	return doc, url, nil
}

// Delete removes the stored object first; the record is only deleted once
// the object is gone.
func (s *DocumentService) Delete(ctx context.Context, principal domain.Principal, id string) error {
	doc, err := s.authorized(ctx, principal, id, domain.ActionDocumentDelete)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.StorageFailure("Failed to delete document file", err)
	}
	if err := s.Documents.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("Document not found")
		}
		return err
	}
	return nil
}

// ReplaceSigned swaps the stored binary for a signed one. Every signed
// placement not yet rendered is taken to be carried by the new file. A
// failed upload or record update leaves the original untouched; a failed
// delete of the old object is only logged.
func (s *DocumentService) ReplaceSigned(ctx context.Context, input ReplaceSignedInput) (domain.Document, error) {
	if len(input.Content) == 0 {
		return domain.Document{}, domain.Invalid("No file uploaded")
	}
	doc, err := s.authorized(ctx, input.Principal, input.DocumentID, domain.ActionDocumentWrite)
	if err != nil {
		return domain.Document{}, err
	}
	info, err := s.validatePDF(input.Content)
	if err != nil {
		return domain.Document{}, err
	}
	if doc.PageCount > 0 && info.PageCount != doc.PageCount {
		return domain.Document{}, domain.Invalid("Signed document does not match the original",
			fmt.Sprintf("expected %d pages, got %d", doc.PageCount, info.PageCount))
	}
	rendered, err := s.unrenderedSigned(ctx, doc.ID)
	if err != nil {
		return domain.Document{}, err
	}
	return s.replace(ctx, doc, input.Filename, input.Content, rendered, input.Principal.Subject, input.IP)
}

// replace stores content as the document's new binary and marks the given
// placements rendered. The old object is deleted only after the record
// points at the new one.
func (s *DocumentService) replace(ctx context.Context, doc domain.Document, filename string, content []byte, rendered []string, actorID, ip string) (domain.Document, error) {
	filename = cleanFilename(filename)
	if filename == "" || filename == "." {
		filename = doc.Filename
	}
	stored, err := s.Store.Put(ctx, documentKey(doc.OwnerID), bytes.NewReader(content), int64(len(content)), domain.PDFMimeType)
	if err != nil {
		return domain.Document{}, domain.StorageFailure("Failed to upload signed document", err)
	}
	now := s.now().UTC()
	updated, err := s.Documents.UpdateLocation(ctx, doc.ID, domain.DocumentLocation{
		Filename:   filename,
		URL:        stored.URL,
		StorageKey: stored.Key,
		FileSize:   int64(len(content)),
		Checksum:   checksum(content),
		UploadedAt: now,
	})
	if err != nil {
		s.discard(ctx, stored.Key)
		return domain.Document{}, err
	}
	if len(rendered) > 0 && s.Signatures != nil {
		if err := s.Signatures.MarkRendered(ctx, doc.ID, rendered, now); err != nil {
			return domain.Document{}, err
		}
	}
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		s.Log.Warn("delete superseded document object",
			zap.String("document_id", doc.ID),
			zap.String("storage_key", doc.StorageKey),
			zap.Error(err))
	}
	if s.Audit != nil {
		if _, err := s.Audit.Record(ctx, doc.ID, actorID, domain.AuditActionReplaceSigned, ip); err != nil {
			return domain.Document{}, err
		}
	}
	return updated, nil
}

func (s *DocumentService) unrenderedSigned(ctx context.Context, documentID string) ([]string, error) {
	if s.Signatures == nil {
		return nil, nil
	}
	sigs, err := s.Signatures.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, sig := range sigs {
		if sig.Status == domain.SignatureStatusSigned && sig.RenderedAt == nil {
			ids = append(ids, sig.ID)
		}
	}
	return ids, nil
}

func (s *DocumentService) authorized(ctx context.Context, principal domain.Principal, id string, action domain.AccessAction) (domain.Document, error) {
	doc, err := loadDocument(ctx, s.Documents, id)
	if err != nil {
		return domain.Document{}, err
	}
	if err := authorizeDocument(ctx, s.Policy, principal, action, doc); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

func (s *DocumentService) validatePDF(content []byte) (domain.PDFInfo, error) {
	if !mimetype.Detect(content).Is(domain.PDFMimeType) {
		return domain.PDFInfo{}, domain.Invalid("Only PDF files are allowed")
	}
	if s.Inspector == nil {
		return domain.PDFInfo{}, nil
	}
	info, err := s.Inspector.Inspect(content)
	if err != nil {
		return domain.PDFInfo{}, domain.Invalid("File is not a readable PDF", err.Error())
	}
	return info, nil
}

func (s *DocumentService) discard(ctx context.Context, key string) {
	if err := s.Store.Delete(ctx, key); err != nil {
		s.Log.Warn("discard orphaned object", zap.String("storage_key", key), zap.Error(err))
	}
}

func (s *DocumentService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func documentKey(ownerID string) string {
	return "documents/" + ownerID + "/" + uuid.NewString() + ".pdf"
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	return path.Base(name)
}

func checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
