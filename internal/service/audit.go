package service

import (
	"context"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

// AuditService exposes read access to the append-only audit ledger.
type AuditService struct {
	store *store.Store
}

// NewAuditService creates the audit query service.
func NewAuditService(s *store.Store) *AuditService {
	return &AuditService{store: s}
}

// Query returns audit entries matching the filter in sequence order.
func (a *AuditService) Query(ctx context.Context, filter store.AuditFilter) ([]*domain.AuditEntry, error) {
	return a.store.QueryAudit(ctx, filter)
}
