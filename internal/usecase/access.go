package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docsign/internal/domain"
)

const resourceDocument = "document"

func authorizeDocument(ctx context.Context, policy domain.AccessPolicy, principal domain.Principal, action domain.AccessAction, doc domain.Document) error {
	if policy == nil {
		return errors.New("access policy required")
	}
	if principal.Subject == "" {
		return domain.Unauthorized("Unauthorized request")
	}
	result, err := policy.Evaluate(ctx, domain.AccessInput{
		Action:   action,
		Subject:  domain.AccessSubject{ID: principal.Subject, Role: string(principal.Role)},
		Resource: domain.AccessResource{Type: resourceDocument, ID: doc.ID, OwnerID: doc.OwnerID},
	})
	if err != nil {
		return fmt.Errorf("evaluate access policy: %w", err)
	}
	if result.Allow {
		return nil
	}
	message := "Unauthorized access"
	if len(result.Deny) > 0 && result.Deny[0].Message != "" {
		message = result.Deny[0].Message
	}
	return domain.Forbidden(message)
}

func loadDocument(ctx context.Context, repo DocumentRepository, id string) (domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Document{}, domain.Invalid("documentId is required")
	}
	doc, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Document{}, domain.NotFound("Document not found")
		}
		return domain.Document{}, err
	}
	return doc, nil
}

func userIDs[T any](items []T, id func(T) string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		value := id(item)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
