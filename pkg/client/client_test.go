package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docsign/internal/config"
	"docsign/internal/infra/auth/password"
	"docsign/internal/infra/auth/tokens"
	httpinfra "docsign/internal/infra/http"
	"docsign/internal/infra/memstore"
	"docsign/internal/infra/pdfstamp"
	"docsign/internal/infra/policyopa"
	"docsign/internal/infra/storage"
	"docsign/internal/testutil"
	"docsign/internal/usecase"
	"docsign/pkg/client"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func newStack(t *testing.T) (*httptest.Server, *pdfstamp.Compositor) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	store := memstore.New()
	objects := storage.NewMemoryStore("")
	engine, err := policyopa.NewEngine(ctx, "")
	if err != nil {
		t.Fatalf("policy engine: %v", err)
	}
	tokenSvc, err := tokens.New("access-secret", "refresh-secret", "docsign-test", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	signer, err := pdfstamp.SelfSigned("docsign client test", time.Now())
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	compositor := pdfstamp.NewCompositor(signer)

	trail := usecase.NewAuditTrail(store.Audit(), store.Users(), store.Documents(), engine)
	documents := usecase.NewDocumentService(store.Documents(), store.Signatures(), objects, pdfstamp.NewInspector(), engine, trail, nil)
	signatures := usecase.NewSignatureService(store.Signatures(), store.Documents(), store.Users(), objects, engine, trail, nil)
	srv := httpinfra.NewServer(config.Config{
		AppEnv:          "test",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		MaxUploadBytes:  1 << 20,
	}, httpinfra.ServerDeps{
		Accounts:      usecase.NewAccountService(store.Users(), store.Documents(), password.NewHasher(bcrypt.MinCost), tokenSvc),
		Documents:     documents,
		Signatures:    signatures,
		Workflow:      usecase.NewSigningWorkflow(signatures, documents, compositor),
		Audit:         trail,
		Authenticator: tokenSvc,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, compositor
}

func loggedIn(t *testing.T, ts *httptest.Server, opts ...client.Option) *client.Client {
	t.Helper()
	ctx := context.Background()
	c := client.New(ts.URL, append([]client.Option{client.WithHTTPClient(ts.Client())}, opts...)...)
	if _, err := c.Register(ctx, "Ada", "ada@example.com", "secret123", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := c.Login(ctx, "ada@example.com", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return c
}

func TestWorkflowEndpoints(t *testing.T) {
	ts, _ := newStack(t)
	c := loggedIn(t, ts)
	ctx := context.Background()

	me, err := c.Me(ctx)
	if err != nil || me.Email != "ada@example.com" {
		t.Fatalf("expected me to resolve, got %+v, %v", me, err)
	}

	original := testutil.LetterPDF(1)
	doc, err := c.UploadDocument(ctx, "contract.pdf", original)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := c.PlaceSignature(ctx, doc.ID, client.Placement{Page: 1, X: 0.1, Y: 0.1, Image: testutil.PNG(300, 100)}); err != nil {
		t.Fatalf("place: %v", err)
	}
	result, err := c.Finalize(ctx, doc.ID, false)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.MatchedCount != 1 || result.ModifiedCount != 1 {
		t.Fatalf("unexpected finalize result: %+v", result)
	}
	sigs, err := c.ListSignatures(ctx, doc.ID)
	if err != nil || len(sigs) != 1 || sigs[0].Status != "signed" {
		t.Fatalf("expected one signed signature, got %+v, %v", sigs, err)
	}
	entries, err := c.AuditLog(ctx, doc.ID)
	if err != nil || len(entries) != 2 || entries[0].Action != "finalize" {
		t.Fatalf("unexpected audit log: %+v, %v", entries, err)
	}
	content, err := c.DownloadDocument(ctx, doc.ID)
	if err != nil || !bytes.Equal(content, original) {
		t.Fatalf("expected original bytes, err %v", err)
	}
	docs, err := c.ListDocuments(ctx)
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected one document, got %d, %v", len(docs), err)
	}
	if err := c.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = c.GetDocument(ctx, doc.ID)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 api error, got %v", err)
	}
}

func TestSignAndReplace(t *testing.T) {
	ts, compositor := newStack(t)
	c := loggedIn(t, ts, client.WithCompositor(compositor))
	ctx := context.Background()

	doc, err := c.UploadDocument(ctx, "contract.pdf", testutil.LetterPDF(2))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	updated, err := c.SignAndReplace(ctx, doc.ID, []client.Placement{
		{Page: 1, X: 0.1, Y: 0.1, Image: testutil.PNG(300, 100)},
		{Page: 2, X: 0.5, Y: 0.8, Width: 120, Height: 40, Image: testutil.PNG(300, 100), Reason: "approved"},
	})
	if err != nil {
		t.Fatalf("sign and replace: %v", err)
	}
	if updated.ID != doc.ID || updated.Checksum == doc.Checksum {
		t.Fatalf("expected same document with new content, got %+v", updated)
	}

	content, err := c.DownloadDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	info, err := pdfstamp.Inspect(content)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.PageCount != 2 || info.SignatureCount != 2 {
		t.Fatalf("expected 2 pages with 2 signatures, got %+v", info)
	}

	sigs, err := c.ListSignatures(ctx, doc.ID)
	if err != nil || len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d, %v", len(sigs), err)
	}
	for _, sig := range sigs {
		if sig.Status != "signed" || sig.RenderedAt == "" {
			t.Fatalf("expected signed and rendered, got %q at %q", sig.Status, sig.RenderedAt)
		}
	}
	entries, err := c.AuditLog(ctx, doc.ID)
	if err != nil || entries[0].Action != "replace-signed" {
		t.Fatalf("expected replace-signed to be newest, got %+v, %v", entries, err)
	}

	// A server render afterwards has nothing left to stamp.
	result, err := c.Finalize(ctx, doc.ID, true)
	if err != nil || result.RenderError != "" {
		t.Fatalf("finalize with render: %+v, %v", result, err)
	}
	if result.Document == nil || result.Document.Checksum != updated.Checksum {
		t.Fatalf("expected document to be unchanged, got %+v", result.Document)
	}
	content, err = c.DownloadDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("download after render: %v", err)
	}
	if info, err := pdfstamp.Inspect(content); err != nil || info.SignatureCount != 2 {
		t.Fatalf("expected 2 signatures after server render, got %+v, %v", info, err)
	}
}

func TestSignAndReplaceAbortsOnPlacementFailure(t *testing.T) {
	ts, compositor := newStack(t)
	c := loggedIn(t, ts, client.WithCompositor(compositor))
	ctx := context.Background()

	original := testutil.LetterPDF(1)
	doc, err := c.UploadDocument(ctx, "contract.pdf", original)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	_, err = c.SignAndReplace(ctx, doc.ID, []client.Placement{
		{Page: 1, X: 0.1, Y: 0.1, Image: testutil.PNG(300, 100)},
		{Page: 0, X: 0.1, Y: 0.1, Image: testutil.PNG(300, 100)},
	})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 api error, got %v", err)
	}

	content, err := c.DownloadDocument(ctx, doc.ID)
	if err != nil || !bytes.Equal(content, original) {
		t.Fatalf("expected original document to be untouched, err %v", err)
	}
	// The valid placement may or may not land before the group is cancelled.
	entries, err := c.AuditLog(ctx, doc.ID)
	if err != nil && (!errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound) {
		t.Fatalf("audit: %v", err)
	}
	for _, entry := range entries {
		if entry.Action == "replace-signed" {
			t.Fatalf("expected no replacement after a failed placement")
		}
	}
}

func TestSignAndReplaceRequiresCompositor(t *testing.T) {
	c := client.New("http://127.0.0.1:0")
	if _, err := c.SignAndReplace(context.Background(), "doc", []client.Placement{{Page: 1}}); err == nil {
		t.Fatalf("expected error without compositor")
	}
}

func TestRefreshAndLogout(t *testing.T) {
	ts, _ := newStack(t)
	ctx := context.Background()
	c := client.New(ts.URL, client.WithHTTPClient(ts.Client()))
	if _, err := c.Register(ctx, "Ada", "ada@example.com", "secret123", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	first, err := c.Login(ctx, "ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	second, err := c.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.Token != second.AccessToken {
		t.Fatalf("expected refreshed access token to be stored")
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := c.Me(ctx); err == nil {
		t.Fatalf("expected me to fail without a token")
	}
}
