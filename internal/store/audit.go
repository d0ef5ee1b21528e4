package store

import (
	"context"
	"time"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

// AuditFilter narrows an audit query. Zero-valued fields match everything.
type AuditFilter struct {
	EntityID string
	BookID   string
	Actor    string
	From     time.Time
	To       time.Time
	Limit    int
}

func (f AuditFilter) matches(e *domain.AuditEntry) bool {
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if f.BookID != "" && e.BookID != f.BookID {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}

// QueryAudit returns audit entries matching the filter in sequence order.
// There is no update or delete counterpart anywhere: the trail is read-only
// once written.
func (s *Store) QueryAudit(ctx context.Context, filter AuditFilter) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	err := s.View(ctx, func(tx *Tx) error {
		// Audit keys are zero-padded sequence numbers, so Badger's key
		// order is sequence order and no sort is needed.
		return tx.scan([]byte(auditPrefix), func(val []byte) error {
			if filter.Limit > 0 && len(entries) >= filter.Limit {
				return nil
			}
			var entry domain.AuditEntry
			if err := unmarshal(val, &entry); err != nil {
				return err
			}
			if filter.matches(&entry) {
				entries = append(entries, &entry)
			}
			return nil
		})
	})
	return entries, err
}
