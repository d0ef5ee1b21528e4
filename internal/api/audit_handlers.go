package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

func (s *Server) registerAuditRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "queryAudit",
		Method:      http.MethodGet,
		Path:        "/api/v1/audit",
		Summary:     "Query audit trail",
		Description: "Returns audit entries in sequence order, optionally filtered by entity, book, actor, or time range.",
		Tags:        []string{"Audit"},
	}, s.handleQueryAudit)
}

// === DTOs ===

// AuditEntryResponse contains one audit record in API responses.
type AuditEntryResponse struct {
	Seq       uint64                `json:"seq"`
	Action    string                `json:"action"`
	Actor     string                `json:"actor"`
	EntityID  string                `json:"entity_id"`
	BookID    string                `json:"book_id,omitempty"`
	Old       domain.StatusSnapshot `json:"old"`
	New       domain.StatusSnapshot `json:"new"`
	Timestamp time.Time             `json:"timestamp"`
}

func toAuditEntryResponse(e *domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		Seq:       e.Seq,
		Action:    string(e.Action),
		Actor:     e.Actor,
		EntityID:  e.EntityID,
		BookID:    e.BookID,
		Old:       e.Old,
		New:       e.New,
		Timestamp: e.Timestamp,
	}
}

// QueryAuditInput carries the audit filter as query parameters.
type QueryAuditInput struct {
	EntityID string    `query:"entity_id" doc:"Filter by entity ID"`
	BookID   string    `query:"book_id" doc:"Filter by book ID"`
	Actor    string    `query:"actor" doc:"Filter by actor"`
	From     time.Time `query:"from" doc:"Entries at or after this time"`
	To       time.Time `query:"to" doc:"Entries before this time"`
	Limit    int       `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum entries to return"`
}

// QueryAuditOutput wraps the matching audit entries.
type QueryAuditOutput struct {
	Body struct {
		Entries []AuditEntryResponse `json:"entries"`
	}
}

// === Handlers ===

func (s *Server) handleQueryAudit(ctx context.Context, input *QueryAuditInput) (*QueryAuditOutput, error) {
	entries, err := s.services.Audit.Query(ctx, store.AuditFilter{
		EntityID: input.EntityID,
		BookID:   input.BookID,
		Actor:    input.Actor,
		From:     input.From,
		To:       input.To,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, err
	}

	resp := &QueryAuditOutput{}
	resp.Body.Entries = make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp.Body.Entries = append(resp.Body.Entries, toAuditEntryResponse(e))
	}
	return resp, nil
}
