package http

import (
	"time"

	"docsign/internal/domain"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// placeSignatureForm is bound from the multipart fields next to the
// signatureImage file. Pointers tell a missing field from a zero.
type placeSignatureForm struct {
	DocumentID string   `form:"documentId"`
	X          *float64 `form:"x"`
	Y          *float64 `form:"y"`
	Page       *int     `form:"page"`
	Width      float64  `form:"width"`
	Height     float64  `form:"height"`
	Status     string   `form:"status"`
	Reason     string   `form:"reason"`
}

type finalizeRequest struct {
	DocumentID string `json:"documentId"`
	Render     bool   `json:"render"`
}

type userResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type userRefResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	User         *userResponse `json:"user,omitempty"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

type documentResponse struct {
	ID         string `json:"id"`
	Owner      string `json:"owner"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	FileSize   int64  `json:"fileSize"`
	MimeType   string `json:"mimeType"`
	PageCount  int    `json:"pageCount"`
	Checksum   string `json:"checksum,omitempty"`
	UploadedAt string `json:"uploadedAt"`
}

type documentURLResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	FileSize int64  `json:"fileSize"`
}

type signatureResponse struct {
	ID                string           `json:"id"`
	DocumentID        string           `json:"documentId"`
	UserID            string           `json:"userId"`
	User              *userRefResponse `json:"user,omitempty"`
	X                 float64          `json:"x"`
	Y                 float64          `json:"y"`
	Page              int              `json:"page"`
	Width             float64          `json:"width"`
	Height            float64          `json:"height"`
	Status            string           `json:"status"`
	Reason            string           `json:"reason,omitempty"`
	SignatureImageURL string           `json:"signatureImageUrl"`
	RenderedAt        string           `json:"renderedAt,omitempty"`
	CreatedAt         string           `json:"createdAt"`
	UpdatedAt         string           `json:"updatedAt"`
}

// finalizeResponse is returned whenever the status change was committed.
// RenderError reports a render that failed after that point.
type finalizeResponse struct {
	MatchedCount  int64             `json:"matchedCount"`
	ModifiedCount int64             `json:"modifiedCount"`
	Document      *documentResponse `json:"document,omitempty"`
	RenderError   string            `json:"renderError,omitempty"`
}

type auditEntryResponse struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId"`
	User       userRefResponse `json:"user"`
	Action     string          `json:"action"`
	IP         string          `json:"ip,omitempty"`
	Timestamp  string          `json:"timestamp"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func buildUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: formatTime(user.CreatedAt),
		UpdatedAt: formatTime(user.UpdatedAt),
	}
}

func buildUserRef(ref domain.UserRef) userRefResponse {
	return userRefResponse{ID: ref.ID, Name: ref.Name, Email: ref.Email}
}

func buildDocumentResponse(doc domain.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID,
		Owner:      doc.OwnerID,
		Filename:   doc.Filename,
		URL:        doc.URL,
		FileSize:   doc.FileSize,
		MimeType:   doc.MimeType,
		PageCount:  doc.PageCount,
		Checksum:   doc.Checksum,
		UploadedAt: formatTime(doc.UploadedAt),
	}
}

func buildSignatureResponse(sig domain.Signature, signer *domain.UserRef) signatureResponse {
	resp := signatureResponse{
		ID:                sig.ID,
		DocumentID:        sig.DocumentID,
		UserID:            sig.UserID,
		X:                 sig.Placement.X,
		Y:                 sig.Placement.Y,
		Page:              sig.Placement.Page,
		Width:             sig.Placement.Width,
		Height:            sig.Placement.Height,
		Status:            string(sig.Status),
		Reason:            sig.Reason,
		SignatureImageURL: sig.ImageURL,
		CreatedAt:         formatTime(sig.CreatedAt),
		UpdatedAt:         formatTime(sig.UpdatedAt),
	}
	if sig.RenderedAt != nil {
		resp.RenderedAt = formatTime(*sig.RenderedAt)
	}
	if signer != nil {
		ref := buildUserRef(*signer)
		resp.User = &ref
	}
	return resp
}

func buildAuditEntryResponse(view domain.AuditEntryView) auditEntryResponse {
	return auditEntryResponse{
		ID:         view.ID,
		DocumentID: view.DocumentID,
		User:       buildUserRef(view.User),
		Action:     view.Action,
		IP:         view.IP,
		Timestamp:  formatTime(view.Timestamp),
	}
}
