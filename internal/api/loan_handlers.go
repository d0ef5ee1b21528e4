package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

func (s *Server) registerLoanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createLoan",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans",
		Summary:     "Create loan",
		Description: "Opens a loan for a borrower on an available book.",
		Tags:        []string{"Loans"},
	}, s.handleCreateLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "listActiveLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans",
		Summary:     "List active loans",
		Description: "Returns every open or overdue loan.",
		Tags:        []string{"Loans"},
	}, s.handleListActiveLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLoan",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/{id}",
		Summary:     "Get loan",
		Tags:        []string{"Loans"},
	}, s.handleGetLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/returns",
		Summary:     "Return book",
		Description: "Closes the active loan identified by a loan ID or a book ID.",
		Tags:        []string{"Loans"},
	}, s.handleReturnBook)
}

// === DTOs ===

// LoanResponse contains loan data in API responses. OverdueDays is derived
// from the expected return date at response time, never stored.
type LoanResponse struct {
	ID                 string     `json:"id" doc:"Loan ID"`
	BookID             string     `json:"book_id"`
	BorrowerID         string     `json:"borrower_id"`
	Status             string     `json:"status"`
	LoanDate           time.Time  `json:"loan_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	OverdueDays        int        `json:"overdue_days" doc:"Whole days past the expected return date"`
}

func toLoanResponse(l *domain.Loan, now time.Time) LoanResponse {
	resp := LoanResponse{
		ID:                 l.ID,
		BookID:             l.BookID,
		BorrowerID:         l.BorrowerID,
		Status:             string(l.Status),
		LoanDate:           l.LoanDate,
		ExpectedReturnDate: l.ExpectedReturnDate,
		ActualReturnDate:   l.ActualReturnDate,
	}
	if l.Status.Active() {
		resp.OverdueDays = l.OverdueDays(now)
	}
	return resp
}

// CreateLoanRequest is the request body for opening a loan.
type CreateLoanRequest struct {
	BookID             string    `json:"book_id" validate:"required" doc:"Book to lend"`
	BorrowerID         string    `json:"borrower_id" validate:"required" doc:"Borrower receiving the book"`
	ExpectedReturnDate time.Time `json:"expected_return_date" validate:"required" doc:"Agreed return date, must be in the future"`
}

// CreateLoanInput wraps the create loan request for Huma.
type CreateLoanInput struct {
	Actor string `header:"X-Actor" doc:"Acting staff member for the audit trail"`
	Body  CreateLoanRequest
}

// LoanOutput wraps a single loan response.
type LoanOutput struct {
	Body LoanResponse
}

// ListLoansOutput wraps the loan list response.
type ListLoansOutput struct {
	Body struct {
		Loans []LoanResponse `json:"loans"`
	}
}

// GetLoanInput identifies a loan by path.
type GetLoanInput struct {
	ID string `path:"id" doc:"Loan ID"`
}

// ReturnBookRequest is the request body for a return.
type ReturnBookRequest struct {
	Ref string `json:"ref" validate:"required" doc:"Loan ID or book ID"`
}

// ReturnBookInput wraps the return request for Huma.
type ReturnBookInput struct {
	Actor string `header:"X-Actor" doc:"Acting staff member for the audit trail"`
	Body  ReturnBookRequest
}

// === Handlers ===

func (s *Server) handleCreateLoan(ctx context.Context, input *CreateLoanInput) (*LoanOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	loan, err := s.services.Circulation.CreateLoan(ctx, actorFrom(input.Actor),
		input.Body.BookID, input.Body.BorrowerID, input.Body.ExpectedReturnDate)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: toLoanResponse(loan, s.services.Circulation.Now())}, nil
}

func (s *Server) handleListActiveLoans(ctx context.Context, _ *struct{}) (*ListLoansOutput, error) {
	loans, err := s.services.Circulation.ActiveLoans(ctx)
	if err != nil {
		return nil, err
	}

	now := s.services.Circulation.Now()
	out := &ListLoansOutput{}
	out.Body.Loans = make([]LoanResponse, len(loans))
	for i, l := range loans {
		out.Body.Loans[i] = toLoanResponse(l, now)
	}
	return out, nil
}

func (s *Server) handleGetLoan(ctx context.Context, input *GetLoanInput) (*LoanOutput, error) {
	loan, err := s.services.Circulation.GetLoan(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: toLoanResponse(loan, s.services.Circulation.Now())}, nil
}

func (s *Server) handleReturnBook(ctx context.Context, input *ReturnBookInput) (*LoanOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	loan, err := s.services.Circulation.ReturnBook(ctx, actorFrom(input.Actor), input.Body.Ref)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: toLoanResponse(loan, s.services.Circulation.Now())}, nil
}
