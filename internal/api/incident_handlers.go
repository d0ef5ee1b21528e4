package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

func (s *Server) registerIncidentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "reportIncident",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/incidents",
		Summary:     "Report incident",
		Description: "Records a damaged, lost, or missing event for a book and applies its status consequences.",
		Tags:        []string{"Incidents"},
	}, s.handleReportIncident)
}

// === DTOs ===

// IncidentResponse contains incident data in API responses.
type IncidentResponse struct {
	ID           string    `json:"id" doc:"Incident ID"`
	BookID       string    `json:"book_id"`
	BorrowerID   string    `json:"borrower_id,omitempty" doc:"Responsible borrower, if any"`
	Type         string    `json:"type"`
	Notes        string    `json:"notes,omitempty"`
	Compensation string    `json:"compensation" doc:"Settlement status"`
	ReportedAt   time.Time `json:"reported_at"`
}

func toIncidentResponse(inc *domain.Incident) IncidentResponse {
	return IncidentResponse{
		ID:           inc.ID,
		BookID:       inc.BookID,
		BorrowerID:   inc.BorrowerID,
		Type:         string(inc.Type),
		Notes:        inc.Notes,
		Compensation: string(inc.Compensation),
		ReportedAt:   inc.ReportedAt,
	}
}

// ReportIncidentRequest is the request body for reporting an incident.
type ReportIncidentRequest struct {
	Type       string `json:"type" validate:"required,oneof=damaged lost missing" doc:"Incident type"`
	Notes      string `json:"notes,omitempty" validate:"omitempty,max=2048" doc:"Free-form notes"`
	BorrowerID string `json:"borrower_id,omitempty" doc:"Responsible borrower; defaults to the current holder"`
}

// ReportIncidentInput wraps the incident report for Huma.
type ReportIncidentInput struct {
	Actor string `header:"X-Actor" doc:"Acting staff member for the audit trail"`
	ID    string `path:"id" doc:"Book ID"`
	Body  ReportIncidentRequest
}

// IncidentOutput wraps a single incident response.
type IncidentOutput struct {
	Body IncidentResponse
}

// === Handlers ===

func (s *Server) handleReportIncident(ctx context.Context, input *ReportIncidentInput) (*IncidentOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	incident, err := s.services.Circulation.ReportIncident(ctx, actorFrom(input.Actor),
		input.ID, domain.IncidentType(input.Body.Type), input.Body.Notes, input.Body.BorrowerID)
	if err != nil {
		return nil, err
	}
	return &IncidentOutput{Body: toIncidentResponse(incident)}, nil
}
