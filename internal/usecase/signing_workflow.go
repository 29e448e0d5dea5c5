package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"

	"docsign/internal/domain"
)

// SigningWorkflow finalizes a document and, on request, burns the signed
// placements into the stored PDF.
type SigningWorkflow struct {
	Signatures *SignatureService
	Documents  *DocumentService
	Compositor domain.PDFCompositor
}

// FinalizeOutcome carries the committed finalize result. RenderErr is set
// when the status change succeeded but composing the signed PDF did not.
type FinalizeOutcome struct {
	Result    domain.FinalizeResult
	Document  *domain.Document
	RenderErr error
}

// renderPlan holds everything a render needs, loaded before any state is
// changed.
type renderPlan struct {
	doc      domain.Document
	original []byte
	stamps   []domain.Stamp
	ids      []string
}

func NewSigningWorkflow(signatures *SignatureService, documents *DocumentService, compositor domain.PDFCompositor) *SigningWorkflow {
	return &SigningWorkflow{
		Signatures: signatures,
		Documents:  documents,
		Compositor: compositor,
	}
}

// Finalize with Render checks every render precondition first. A request
// that cannot be rendered fails without touching status or audit.
func (w *SigningWorkflow) Finalize(ctx context.Context, input FinalizeInput) (FinalizeOutcome, error) {
	if !input.Render {
		_, result, err := w.Signatures.Finalize(ctx, input)
		if err != nil {
			return FinalizeOutcome{}, err
		}
		return FinalizeOutcome{Result: result}, nil
	}
	plan, err := w.prepare(ctx, input.Principal, input.DocumentID, true)
	if err != nil {
		return FinalizeOutcome{}, err
	}
	_, result, err := w.Signatures.Finalize(ctx, input)
	if err != nil {
		return FinalizeOutcome{}, err
	}
	outcome := FinalizeOutcome{Result: result}
	rendered, err := w.apply(ctx, input.Principal, plan, input.IP)
	if err != nil {
		outcome.RenderErr = err
		return outcome, nil
	}
	outcome.Document = &rendered
	return outcome, nil
}

// Render composites every signed placement not yet in the stored PDF and
// replaces the document with the result. A document with nothing left to
// stamp is returned unchanged.
func (w *SigningWorkflow) Render(ctx context.Context, principal domain.Principal, documentID, ip string) (domain.Document, error) {
	plan, err := w.prepare(ctx, principal, documentID, false)
	if err != nil {
		return domain.Document{}, err
	}
	return w.apply(ctx, principal, plan, ip)
}

// prepare selects the unrendered placements to stamp and reads their
// objects. includePending also selects pending placements, which the
// following finalize turns into signed ones.
func (w *SigningWorkflow) prepare(ctx context.Context, principal domain.Principal, documentID string, includePending bool) (renderPlan, error) {
	if w.Compositor == nil {
		return renderPlan{}, fmt.Errorf("pdf compositor required")
	}
	doc, err := loadDocument(ctx, w.Documents.Documents, documentID)
	if err != nil {
		return renderPlan{}, err
	}
	if err := authorizeDocument(ctx, w.Documents.Policy, principal, domain.ActionDocumentWrite, doc); err != nil {
		return renderPlan{}, err
	}
	views, err := w.Signatures.List(ctx, principal, doc.ID)
	if err != nil {
		return renderPlan{}, err
	}
	selected := make([]domain.SignatureView, 0, len(views))
	for _, view := range views {
		if view.RenderedAt != nil {
			continue
		}
		if view.Status == domain.SignatureStatusSigned || (includePending && view.Status == domain.SignatureStatusPending) {
			selected = append(selected, view)
		}
	}
	plan := renderPlan{doc: doc}
	if len(selected) == 0 {
		return plan, nil
	}
	for _, view := range selected {
		if doc.PageCount > 0 && view.Placement.Page > doc.PageCount {
			return renderPlan{}, domain.Invalid("Placement page out of range",
				fmt.Sprintf("signature %s is on page %d, document has %d", view.ID, view.Placement.Page, doc.PageCount))
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Placement.Page != selected[j].Placement.Page {
			return selected[i].Placement.Page < selected[j].Placement.Page
		}
		return selected[i].CreatedAt.Before(selected[j].CreatedAt)
	})

	plan.original, err = w.readObject(ctx, doc.StorageKey)
	if err != nil {
		return renderPlan{}, domain.StorageFailure("Failed to fetch document", err)
	}
	for _, view := range selected {
		image, err := w.readObject(ctx, view.ImageStorageKey)
		if err != nil {
			return renderPlan{}, domain.StorageFailure("Failed to fetch signature image", err)
		}
		plan.stamps = append(plan.stamps, domain.Stamp{
			Placement: view.Placement,
			Image:     image,
			Signer:    view.Signer.Name,
			Reason:    view.Reason,
		})
		plan.ids = append(plan.ids, view.ID)
	}
	return plan, nil
}

func (w *SigningWorkflow) apply(ctx context.Context, principal domain.Principal, plan renderPlan, ip string) (domain.Document, error) {
	if len(plan.stamps) == 0 {
		return plan.doc, nil
	}
	composed, err := w.Compositor.Compose(ctx, plan.original, plan.stamps)
	if err != nil {
		return domain.Document{}, err
	}
	return w.Documents.replace(ctx, plan.doc, plan.doc.Filename, composed, plan.ids, principal.Subject, ip)
}

func (w *SigningWorkflow) readObject(ctx context.Context, key string) ([]byte, error) {
	body, err := w.Documents.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}
