package usecase

import (
	"docsign/internal/infra/db"
	"docsign/internal/infra/memstore"
)

var (
	_ UserRepository      = (*db.UserRepository)(nil)
	_ DocumentRepository  = (*db.DocumentRepository)(nil)
	_ SignatureRepository = (*db.SignatureRepository)(nil)
	_ AuditRepository     = (*db.AuditRepository)(nil)

	_ UserRepository      = (*memstore.UserRepository)(nil)
	_ DocumentRepository  = (*memstore.DocumentRepository)(nil)
	_ SignatureRepository = (*memstore.SignatureRepository)(nil)
	_ AuditRepository     = (*memstore.AuditRepository)(nil)
)
