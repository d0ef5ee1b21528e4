package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookwarden/bookwarden-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "runSweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/sweep",
		Summary:     "Run overdue sweep",
		Description: "Walks active loans and applies time-derived transitions, then recomputes borrower risk.",
		Tags:        []string{"Admin"},
	}, s.handleRunSweep)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexCatalog",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reindex",
		Summary:     "Rebuild search index",
		Tags:        []string{"Admin"},
	}, s.handleReindexCatalog)
}

// SweepOutput reports what a sweep pass changed.
type SweepOutput struct {
	Body struct {
		Transitions      []service.Transition `json:"transitions"`
		BorrowersChanged int                  `json:"borrowers_changed"`
	}
}

// ReindexOutput reports how many catalog entries were indexed.
type ReindexOutput struct {
	Body struct {
		Indexed int `json:"indexed"`
	}
}

func (s *Server) handleRunSweep(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
	transitions, err := s.services.Sweep.Run(ctx)
	if err != nil {
		return nil, err
	}
	changed, err := s.services.Sweep.RecomputeBorrowers(ctx)
	if err != nil {
		return nil, err
	}

	resp := &SweepOutput{}
	resp.Body.Transitions = transitions
	resp.Body.BorrowersChanged = changed
	return resp, nil
}

func (s *Server) handleReindexCatalog(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	indexed, err := s.services.Search.Reindex(ctx)
	if err != nil {
		return nil, err
	}
	resp := &ReindexOutput{}
	resp.Body.Indexed = indexed
	return resp, nil
}
