package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookwarden/bookwarden-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search catalog",
		Description: "Full-text search over the catalog by title, author, or ISBN.",
		Tags:        []string{"Search"},
	}, s.handleSearchCatalog)
}

// SearchInput carries catalog search parameters.
type SearchInput struct {
	Query     string   `query:"q" doc:"Search terms; empty matches everything"`
	Statuses  []string `query:"status" doc:"Restrict hits to these book statuses"`
	Limit     int      `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum hits to return"`
	Offset    int      `query:"offset" minimum:"0" doc:"Hits to skip for pagination"`
	Highlight bool     `query:"highlight" doc:"Include match highlights"`
}

// SearchOutput wraps the search result.
type SearchOutput struct {
	Body search.Result
}

func (s *Server) handleSearchCatalog(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	result, err := s.services.Search.Search(ctx, search.Params{
		Query:     input.Query,
		Statuses:  input.Statuses,
		Limit:     input.Limit,
		Offset:    input.Offset,
		Highlight: input.Highlight,
	})
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: *result}, nil
}
