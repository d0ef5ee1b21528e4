package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

func (s *Server) registerWaitlistRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "enqueueWaitlist",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/waitlist",
		Summary:     "Join waitlist",
		Description: "Adds a borrower to the queue for a book that is not currently available.",
		Tags:        []string{"Waitlist"},
	}, s.handleEnqueueWaitlist)

	huma.Register(s.api, huma.Operation{
		OperationID: "listWaitlist",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/waitlist",
		Summary:     "List waitlist",
		Tags:        []string{"Waitlist"},
	}, s.handleListWaitlist)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelWaitlist",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}/waitlist/{borrowerId}",
		Summary:     "Leave waitlist",
		Tags:        []string{"Waitlist"},
	}, s.handleCancelWaitlist)
}

// === DTOs ===

// WaitlistEntryResponse contains waitlist entry data in API responses.
// Position is the 1-based serving position at the time of the request.
type WaitlistEntryResponse struct {
	ID         string    `json:"id"`
	BookID     string    `json:"book_id"`
	BorrowerID string    `json:"borrower_id"`
	Position   int       `json:"position"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func toWaitlistEntryResponse(e *domain.WaitlistEntry, position int) WaitlistEntryResponse {
	return WaitlistEntryResponse{
		ID:         e.ID,
		BookID:     e.BookID,
		BorrowerID: e.BorrowerID,
		Position:   position,
		EnqueuedAt: e.EnqueuedAt,
	}
}

// EnqueueWaitlistRequest is the request body for joining a waitlist.
type EnqueueWaitlistRequest struct {
	BorrowerID string `json:"borrower_id" validate:"required" doc:"Borrower joining the queue"`
}

// EnqueueWaitlistInput wraps the enqueue request for Huma.
type EnqueueWaitlistInput struct {
	Actor string `header:"X-Actor" doc:"Acting staff member for the audit trail"`
	ID    string `path:"id" doc:"Book ID"`
	Body  EnqueueWaitlistRequest
}

// WaitlistEntryOutput wraps a single waitlist entry response.
type WaitlistEntryOutput struct {
	Body WaitlistEntryResponse
}

// ListWaitlistOutput wraps a book's waitlist in serving order.
type ListWaitlistOutput struct {
	Body struct {
		Entries []WaitlistEntryResponse `json:"entries"`
	}
}

// CancelWaitlistInput identifies the entry to remove.
type CancelWaitlistInput struct {
	Actor      string `header:"X-Actor" doc:"Acting staff member for the audit trail"`
	ID         string `path:"id" doc:"Book ID"`
	BorrowerID string `path:"borrowerId" doc:"Borrower leaving the queue"`
}

// === Handlers ===

func (s *Server) handleEnqueueWaitlist(ctx context.Context, input *EnqueueWaitlistInput) (*WaitlistEntryOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	entry, err := s.services.Waitlist.Enqueue(ctx, actorFrom(input.Actor), input.ID, input.Body.BorrowerID)
	if err != nil {
		return nil, err
	}

	// The new entry joins at the back of the queue.
	entries, err := s.services.Waitlist.List(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &WaitlistEntryOutput{Body: toWaitlistEntryResponse(entry, len(entries))}, nil
}

func (s *Server) handleListWaitlist(ctx context.Context, input *GetBookInput) (*ListWaitlistOutput, error) {
	entries, err := s.services.Waitlist.List(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	resp := &ListWaitlistOutput{}
	resp.Body.Entries = make([]WaitlistEntryResponse, 0, len(entries))
	for i, e := range entries {
		resp.Body.Entries = append(resp.Body.Entries, toWaitlistEntryResponse(e, i+1))
	}
	return resp, nil
}

func (s *Server) handleCancelWaitlist(ctx context.Context, input *CancelWaitlistInput) (*struct{}, error) {
	if err := s.services.Waitlist.Cancel(ctx, actorFrom(input.Actor), input.ID, input.BorrowerID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}
