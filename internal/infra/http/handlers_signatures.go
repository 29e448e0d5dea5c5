package http

import (
	"errors"
	"net/http"
	"strings"

	"docsign/internal/domain"
	"docsign/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const placementRequiredMessage = "documentId, x, y, page, and signatureImage file are required"

func (s *Server) handlePlaceSignature(c *gin.Context) {
	_, image, err := s.readFormFile(c, "signatureImage")
	if err != nil {
		s.writeUploadError(c, err, placementRequiredMessage)
		return
	}
	var form placeSignatureForm
	if err := c.ShouldBind(&form); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid placement", "x, y, page, width and height must be numbers")
		return
	}
	if strings.TrimSpace(form.DocumentID) == "" || form.X == nil || form.Y == nil || form.Page == nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", placementRequiredMessage)
		return
	}
	sig, err := s.signatures.Place(c.Request.Context(), usecase.PlaceInput{
		Principal:  getPrincipal(c),
		DocumentID: strings.TrimSpace(form.DocumentID),
		Placement: domain.Placement{
			Page:   *form.Page,
			X:      *form.X,
			Y:      *form.Y,
			Width:  form.Width,
			Height: form.Height,
		},
		Status: form.Status,
		Reason: form.Reason,
		Image:  image,
		IP:     c.ClientIP(),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusCreated, buildSignatureResponse(sig, nil), "Signature saved successfully")
}

func (s *Server) handleListSignatures(c *gin.Context) {
	documentID, ok := uuidParam(c, "documentId")
	if !ok {
		return
	}
	views, err := s.signatures.List(c.Request.Context(), getPrincipal(c), documentID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]signatureResponse, 0, len(views))
	for i := range views {
		out = append(out, buildSignatureResponse(views[i].Signature, &views[i].Signer))
	}
	writeSuccess(c, http.StatusOK, out, "Signatures fetched successfully")
}

func (s *Server) handleFinalize(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "documentId is required")
		return
	}
	if s.workflow == nil {
		s.writeError(c, errors.New("signing workflow not configured"))
		return
	}
	outcome, err := s.workflow.Finalize(c.Request.Context(), usecase.FinalizeInput{
		Principal:  getPrincipal(c),
		DocumentID: strings.TrimSpace(req.DocumentID),
		IP:         c.ClientIP(),
		Render:     req.Render,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	resp := finalizeResponse{
		MatchedCount:  outcome.Result.MatchedCount,
		ModifiedCount: outcome.Result.ModifiedCount,
	}
	if outcome.Document != nil {
		doc := buildDocumentResponse(*outcome.Document)
		resp.Document = &doc
	}
	if outcome.RenderErr != nil {
		s.log.Warn("render after finalize",
			zap.String("document_id", req.DocumentID),
			zap.String("request_id", requestID(c)),
			zap.Error(outcome.RenderErr))
		resp.RenderError = renderErrorMessage(outcome.RenderErr)
		writeSuccess(c, http.StatusOK, resp, "Document finalized; rendering failed")
		return
	}
	writeSuccess(c, http.StatusOK, resp, "Document finalized successfully")
}

func (s *Server) handleListAudit(c *gin.Context) {
	documentID, ok := uuidParam(c, "documentId")
	if !ok {
		return
	}
	entries, err := s.audit.ListByDocument(c.Request.Context(), getPrincipal(c), documentID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, buildAuditEntryResponse(entry))
	}
	writeSuccess(c, http.StatusOK, out, "Audit logs fetched successfully")
}

func renderErrorMessage(err error) string {
	if apiErr, ok := domain.AsAPIError(err); ok && apiErr.Status < http.StatusInternalServerError {
		return apiErr.Message
	}
	return "Failed to render signed document"
}
