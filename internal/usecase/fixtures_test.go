package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"docsign/internal/domain"
	"docsign/internal/infra/auth/password"
	"docsign/internal/infra/auth/tokens"
	"docsign/internal/infra/memstore"
	"docsign/internal/infra/storage"
	"docsign/internal/testutil"

	"golang.org/x/crypto/bcrypt"
)

// ownerPolicy mirrors the rego policy: owners and admins are allowed.
type ownerPolicy struct {
	calls int
}

func (p *ownerPolicy) Evaluate(_ context.Context, input domain.AccessInput) (domain.PolicyResult, error) {
	p.calls++
	if input.Subject.ID == "" {
		return domain.PolicyResult{Deny: []domain.PolicyDeny{{Code: "UNAUTHENTICATED", Message: "Unauthorized request"}}}, nil
	}
	if input.Subject.Role == string(domain.RoleAdmin) || input.Subject.ID == input.Resource.OwnerID {
		return domain.PolicyResult{Allow: true}, nil
	}
	return domain.PolicyResult{Deny: []domain.PolicyDeny{{Code: "NOT_OWNER", Message: "Unauthorized access"}}}, nil
}

type stubInspector struct {
	pages int
	err   error
}

func (s stubInspector) Inspect(content []byte) (domain.PDFInfo, error) {
	if s.err != nil {
		return domain.PDFInfo{}, s.err
	}
	return domain.PDFInfo{PageCount: s.pages}, nil
}

type recordingCompositor struct {
	stamps []domain.Stamp
	err    error
}

func (r *recordingCompositor) Compose(_ context.Context, content []byte, stamps []domain.Stamp) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.stamps = append(r.stamps, stamps...)
	return append(append([]byte{}, content...), []byte("\n% stamped\n")...), nil
}

// flakyStore fails Put after the first okPuts calls.
type flakyStore struct {
	domain.ObjectStore
	okPuts int
	puts   int
}

func (f *flakyStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (domain.StoredObject, error) {
	f.puts++
	if f.puts > f.okPuts {
		return domain.StoredObject{}, errors.New("bucket unavailable")
	}
	return f.ObjectStore.Put(ctx, key, body, size, contentType)
}

// stuckLocations fails every location update.
type stuckLocations struct {
	DocumentRepository
}

func (stuckLocations) UpdateLocation(context.Context, string, domain.DocumentLocation) (domain.Document, error) {
	return domain.Document{}, errors.New("connection reset")
}

type fixture struct {
	mem        *memstore.Store
	objects    *storage.MemoryStore
	policy     *ownerPolicy
	compositor *recordingCompositor
	trail      *AuditTrail
	documents  *DocumentService
	signatures *SignatureService
	workflow   *SigningWorkflow
	accounts   *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memstore.New()
	objects := storage.NewMemoryStore("")
	policy := &ownerPolicy{}
	compositor := &recordingCompositor{}
	tokenSvc, err := tokens.New("access-secret", "refresh-secret", "docsign-test", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	trail := NewAuditTrail(mem.Audit(), mem.Users(), mem.Documents(), policy)
	documents := NewDocumentService(mem.Documents(), mem.Signatures(), objects, stubInspector{pages: 1}, policy, trail, nil)
	signatures := NewSignatureService(mem.Signatures(), mem.Documents(), mem.Users(), objects, policy, trail, nil)
	return &fixture{
		mem:        mem,
		objects:    objects,
		policy:     policy,
		compositor: compositor,
		trail:      trail,
		documents:  documents,
		signatures: signatures,
		workflow:   NewSigningWorkflow(signatures, documents, compositor),
		accounts:   NewAccountService(mem.Users(), mem.Documents(), password.NewHasher(bcrypt.MinCost), tokenSvc),
	}
}

func (f *fixture) user(t *testing.T, name string, role domain.Role) domain.Principal {
	t.Helper()
	user, err := f.mem.Users().Create(context.Background(), domain.User{
		Name:  name,
		Email: name + "@example.com",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return domain.Principal{Subject: user.ID, Email: user.Email, Role: user.Role}
}

func (f *fixture) upload(t *testing.T, owner domain.Principal) domain.Document {
	t.Helper()
	doc, err := f.documents.Upload(context.Background(), UploadInput{
		Principal: owner,
		Filename:  "contract.pdf",
		Content:   testutil.LetterPDF(1),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return doc
}

func (f *fixture) place(t *testing.T, who domain.Principal, documentID, status string, page int) domain.Signature {
	t.Helper()
	sig, err := f.signatures.Place(context.Background(), PlaceInput{
		Principal:  who,
		DocumentID: documentID,
		Placement:  domain.Placement{Page: page, X: 0.1, Y: 0.1},
		Status:     status,
		Image:      testutil.PNG(30, 10),
		IP:         "192.0.2.1",
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	return sig
}

func (f *fixture) auditActions(t *testing.T, who domain.Principal, documentID string) []string {
	t.Helper()
	entries, err := f.trail.ListByDocument(context.Background(), who, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Action)
	}
	return out
}

func expectAPIError(t *testing.T, err error, status int) *domain.APIError {
	t.Helper()
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		t.Fatalf("expected api error with status %d, got %v", status, err)
	}
	if apiErr.Status != status {
		t.Fatalf("expected status %d, got %d (%s)", status, apiErr.Status, apiErr.Message)
	}
	return apiErr
}
