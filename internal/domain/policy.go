package domain

import "context"

type AccessAction string

const (
	ActionDocumentRead   AccessAction = "document:read"
	ActionDocumentWrite  AccessAction = "document:write"
	ActionDocumentDelete AccessAction = "document:delete"
	ActionSignaturePlace AccessAction = "signature:place"
	ActionSignatureRead  AccessAction = "signature:read"
	ActionFinalize       AccessAction = "signature:finalize"
	ActionAuditRead      AccessAction = "audit:read"
)

type AccessSubject struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type AccessResource struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

type AccessInput struct {
	Action   AccessAction   `json:"action"`
	Subject  AccessSubject  `json:"subject"`
	Resource AccessResource `json:"resource"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type AccessPolicy interface {
	Evaluate(ctx context.Context, input AccessInput) (PolicyResult, error)
}
