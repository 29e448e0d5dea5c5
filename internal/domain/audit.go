package domain

import "time"

const (
	AuditActionFinalize      = "finalize"
	AuditActionReplaceSigned = "replace-signed"
)

func SignatureAuditAction(status SignatureStatus) string {
	return "signature-" + string(status)
}

type AuditEntry struct {
	ID         string
	DocumentID string
	UserID     string
	Action     string
	IP         string
	Timestamp  time.Time
}

type AuditEntryView struct {
	AuditEntry
	User UserRef
}
