package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

func (s *Server) registerBorrowerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createBorrower",
		Method:      http.MethodPost,
		Path:        "/api/v1/borrowers",
		Summary:     "Create borrower",
		Tags:        []string{"Borrowers"},
	}, s.handleCreateBorrower)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBorrowers",
		Method:      http.MethodGet,
		Path:        "/api/v1/borrowers",
		Summary:     "List borrowers",
		Tags:        []string{"Borrowers"},
	}, s.handleListBorrowers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBorrower",
		Method:      http.MethodGet,
		Path:        "/api/v1/borrowers/{id}",
		Summary:     "Get borrower",
		Tags:        []string{"Borrowers"},
	}, s.handleGetBorrower)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBorrowerLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/borrowers/{id}/loans",
		Summary:     "Get borrower loans",
		Description: "Returns the borrower's full loan history.",
		Tags:        []string{"Borrowers"},
	}, s.handleGetBorrowerLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "setBorrowerStatus",
		Method:      http.MethodPatch,
		Path:        "/api/v1/borrowers/{id}/status",
		Summary:     "Set borrower status",
		Description: "Administrative membership override: suspend a borrower or lift a suspension.",
		Tags:        []string{"Borrowers"},
	}, s.handleSetBorrowerStatus)
}

// === DTOs ===

// BorrowerResponse contains borrower data in API responses.
type BorrowerResponse struct {
	ID        string    `json:"id" doc:"Borrower ID"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status" doc:"Membership status"`
	Risk      RiskFlags `json:"risk" doc:"Derived risk flags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RiskFlags mirrors the derived borrower risk flags.
type RiskFlags struct {
	HasDelayedReturns bool `json:"has_delayed_returns"`
	HasLostBooks      bool `json:"has_lost_books"`
	HasDamagedBooks   bool `json:"has_damaged_books"`
}

func toBorrowerResponse(b *domain.Borrower) BorrowerResponse {
	return BorrowerResponse{
		ID:     b.ID,
		Name:   b.Name,
		Email:  b.Email,
		Status: string(b.Status),
		Risk: RiskFlags{
			HasDelayedReturns: b.Risk.HasDelayedReturns,
			HasLostBooks:      b.Risk.HasLostBooks,
			HasDamagedBooks:   b.Risk.HasDamagedBooks,
		},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// CreateBorrowerRequest is the request body for registering a borrower.
type CreateBorrowerRequest struct {
	Name  string `json:"name" validate:"required,max=256" doc:"Display name"`
	Email string `json:"email,omitempty" validate:"omitempty,email" doc:"Contact email"`
}

// CreateBorrowerInput wraps the create borrower request for Huma.
type CreateBorrowerInput struct {
	Actor string `header:"X-Actor" doc:"Acting staff member for the audit trail"`
	Body  CreateBorrowerRequest
}

// BorrowerOutput wraps a single borrower response.
type BorrowerOutput struct {
	Body BorrowerResponse
}

// ListBorrowersOutput wraps the borrower list response.
type ListBorrowersOutput struct {
	Body struct {
		Borrowers []BorrowerResponse `json:"borrowers"`
	}
}

// GetBorrowerInput identifies a borrower by path.
type GetBorrowerInput struct {
	ID string `path:"id" doc:"Borrower ID"`
}

// SetBorrowerStatusRequest is the request body for a status override.
type SetBorrowerStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended" doc:"Target membership status"`
}

// SetBorrowerStatusInput wraps the status override request for Huma.
type SetBorrowerStatusInput struct {
	Actor string `header:"X-Actor" doc:"Acting staff member for the audit trail"`
	ID    string `path:"id" doc:"Borrower ID"`
	Body  SetBorrowerStatusRequest
}

// BorrowerLoansOutput wraps a borrower's loan history.
type BorrowerLoansOutput struct {
	Body struct {
		Loans []LoanResponse `json:"loans"`
	}
}

// === Handlers ===

func (s *Server) handleCreateBorrower(ctx context.Context, input *CreateBorrowerInput) (*BorrowerOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	borrower, err := s.services.Catalog.CreateBorrower(ctx, actorFrom(input.Actor), input.Body.Name, input.Body.Email)
	if err != nil {
		return nil, err
	}
	return &BorrowerOutput{Body: toBorrowerResponse(borrower)}, nil
}

func (s *Server) handleListBorrowers(ctx context.Context, _ *struct{}) (*ListBorrowersOutput, error) {
	borrowers, err := s.services.Catalog.ListBorrowers(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListBorrowersOutput{}
	out.Body.Borrowers = make([]BorrowerResponse, len(borrowers))
	for i, b := range borrowers {
		out.Body.Borrowers[i] = toBorrowerResponse(b)
	}
	return out, nil
}

func (s *Server) handleGetBorrower(ctx context.Context, input *GetBorrowerInput) (*BorrowerOutput, error) {
	borrower, err := s.services.Catalog.GetBorrower(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BorrowerOutput{Body: toBorrowerResponse(borrower)}, nil
}

func (s *Server) handleGetBorrowerLoans(ctx context.Context, input *GetBorrowerInput) (*BorrowerLoansOutput, error) {
	loans, err := s.services.Catalog.BorrowerLoans(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	now := s.services.Circulation.Now()
	out := &BorrowerLoansOutput{}
	out.Body.Loans = make([]LoanResponse, len(loans))
	for i, l := range loans {
		out.Body.Loans[i] = toLoanResponse(l, now)
	}
	return out, nil
}

func (s *Server) handleSetBorrowerStatus(ctx context.Context, input *SetBorrowerStatusInput) (*BorrowerOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	borrower, err := s.services.Catalog.SetBorrowerStatus(ctx, actorFrom(input.Actor), input.ID, domain.MembershipStatus(input.Body.Status))
	if err != nil {
		return nil, err
	}
	return &BorrowerOutput{Body: toBorrowerResponse(borrower)}, nil
}
