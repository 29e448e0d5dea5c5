package usecase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"docsign/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SignatureService struct {
	Signatures SignatureRepository
	Documents  DocumentRepository
	Users      UserRepository
	Store      domain.ObjectStore
	Policy     domain.AccessPolicy
	Audit      *AuditTrail
	Log        *zap.Logger
	Clock      Clock
}

type PlaceInput struct {
	Principal  domain.Principal
	DocumentID string
	Placement  domain.Placement
	Status     string
	Reason     string
	Image      []byte
	IP         string
}

type FinalizeInput struct {
	Principal  domain.Principal
	DocumentID string
	IP         string
	Render     bool
}

func NewSignatureService(signatures SignatureRepository, documents DocumentRepository, users UserRepository, store domain.ObjectStore, policy domain.AccessPolicy, audit *AuditTrail, log *zap.Logger) *SignatureService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SignatureService{
		Signatures: signatures,
		Documents:  documents,
		Users:      users,
		Store:      store,
		Policy:     policy,
		Audit:      audit,
		Log:        log,
		Clock:      time.Now,
	}
}

// Place stores the image, then the record, then the audit entry. Nothing is
// written when the image cannot be stored.
func (s *SignatureService) Place(ctx context.Context, input PlaceInput) (domain.Signature, error) {
	if strings.TrimSpace(input.DocumentID) == "" || len(input.Image) == 0 {
		return domain.Signature{}, domain.Invalid("documentId, x, y, page, and signatureImage file are required")
	}
	status, ok := domain.ParseSignatureStatus(input.Status)
	if !ok {
		return domain.Signature{}, domain.Invalid("Invalid signature status", "status must be one of pending, signed, rejected")
	}
	placement := input.Placement.WithDefaults()
	if err := placement.Validate(); err != nil {
		return domain.Signature{}, err
	}
	ext, contentType, err := imageType(input.Image)
	if err != nil {
		return domain.Signature{}, err
	}
	doc, err := loadDocument(ctx, s.Documents, input.DocumentID)
	if err != nil {
		return domain.Signature{}, err
	}
	if err := authorizeDocument(ctx, s.Policy, input.Principal, domain.ActionSignaturePlace, doc); err != nil {
		return domain.Signature{}, err
	}
	if doc.PageCount > 0 && placement.Page > doc.PageCount {
		return domain.Signature{}, domain.Invalid("Placement page out of range",
			fmt.Sprintf("page %d requested, document has %d", placement.Page, doc.PageCount))
	}

	key := "signatures/" + doc.ID + "/" + uuid.NewString() + ext
	stored, err := s.Store.Put(ctx, key, bytes.NewReader(input.Image), int64(len(input.Image)), contentType)
	if err != nil {
		return domain.Signature{}, domain.StorageFailure("Failed to upload signature image", err)
	}
	now := s.now().UTC()
	sig, err := s.Signatures.Create(ctx, domain.Signature{
		DocumentID:      doc.ID,
		UserID:          input.Principal.Subject,
		Placement:       placement,
		Status:          status,
		Reason:          strings.TrimSpace(input.Reason),
		ImageURL:        stored.URL,
		ImageStorageKey: stored.Key,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		if delErr := s.Store.Delete(ctx, stored.Key); delErr != nil {
			s.Log.Warn("discard signature image", zap.String("storage_key", stored.Key), zap.Error(delErr))
		}
		return domain.Signature{}, err
	}
	if _, err := s.Audit.Record(ctx, doc.ID, input.Principal.Subject, domain.SignatureAuditAction(status), input.IP); err != nil {
		return domain.Signature{}, err
	}
	return sig, nil
}

func (s *SignatureService) List(ctx context.Context, principal domain.Principal, documentID string) ([]domain.SignatureView, error) {
	doc, err := loadDocument(ctx, s.Documents, documentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeDocument(ctx, s.Policy, principal, domain.ActionSignatureRead, doc); err != nil {
		return nil, err
	}
	sigs, err := s.Signatures.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	refs, err := s.Users.Refs(ctx, userIDs(sigs, func(sig domain.Signature) string { return sig.UserID }))
	if err != nil {
		return nil, err
	}
	out := make([]domain.SignatureView, 0, len(sigs))
	for _, sig := range sigs {
		out = append(out, domain.SignatureView{Signature: sig, Signer: refs[sig.UserID]})
	}
	return out, nil
}

// Finalize moves pending signatures to signed. Every call appends a
// finalize entry, including calls that change nothing.
func (s *SignatureService) Finalize(ctx context.Context, input FinalizeInput) (domain.Document, domain.FinalizeResult, error) {
	doc, err := loadDocument(ctx, s.Documents, input.DocumentID)
	if err != nil {
		return domain.Document{}, domain.FinalizeResult{}, err
	}
	if err := authorizeDocument(ctx, s.Policy, input.Principal, domain.ActionFinalize, doc); err != nil {
		return domain.Document{}, domain.FinalizeResult{}, err
	}
	result, err := s.Signatures.MarkPendingSigned(ctx, doc.ID, s.now().UTC())
	if err != nil {
		return domain.Document{}, domain.FinalizeResult{}, err
	}
	if _, err := s.Audit.Record(ctx, doc.ID, input.Principal.Subject, domain.AuditActionFinalize, input.IP); err != nil {
		return domain.Document{}, domain.FinalizeResult{}, err
	}
	return doc, result, nil
}

func (s *SignatureService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func imageType(content []byte) (string, string, error) {
	detected := mimetype.Detect(content)
	switch {
	case detected.Is("image/png"):
		return ".png", "image/png", nil
	case detected.Is("image/jpeg"):
		return ".jpg", "image/jpeg", nil
	default:
		return "", "", domain.Invalid("Signature image must be PNG or JPEG")
	}
}
