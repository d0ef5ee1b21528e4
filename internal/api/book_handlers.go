package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	"github.com/bookwarden/bookwarden-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books",
		Summary:     "Create book",
		Description: "Adds a book to the catalog. Missing fields are enriched from the ISBN when possible.",
		Tags:        []string{"Books"},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/resolve",
		Summary:     "Resolve book",
		Description: "Returns a damaged or lost book to circulation.",
		Tags:        []string{"Books"},
	}, s.handleResolveBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Remove book",
		Description: "Withdraws a book from circulation permanently.",
		Tags:        []string{"Books"},
	}, s.handleRemoveBook)
}

// === DTOs ===

// BookResponse contains book data in API responses.
type BookResponse struct {
	ID        string    `json:"id" doc:"Book ID"`
	Title     string    `json:"title" doc:"Title"`
	Author    string    `json:"author,omitempty" doc:"Author"`
	ISBN      string    `json:"isbn,omitempty" doc:"ISBN"`
	Publisher string    `json:"publisher,omitempty" doc:"Publisher"`
	Status    string    `json:"status" doc:"Circulation status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		ISBN:      b.ISBN,
		Publisher: b.Publisher,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// CreateBookRequest is the request body for creating a book.
type CreateBookRequest struct {
	Title     string `json:"title,omitempty" validate:"omitempty,max=512" doc:"Title (required unless ISBN enrichment supplies one)"`
	Author    string `json:"author,omitempty" validate:"omitempty,max=256" doc:"Author"`
	ISBN      string `json:"isbn,omitempty" validate:"omitempty,isbn" doc:"ISBN-10 or ISBN-13"`
	Publisher string `json:"publisher,omitempty" validate:"omitempty,max=256" doc:"Publisher"`
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Actor string `header:"X-Actor" doc:"Acting staff member for the audit trail"`
	Body  CreateBookRequest
}

// BookOutput wraps a single book response.
type BookOutput struct {
	Body BookResponse
}

// ListBooksOutput wraps the book list response.
type ListBooksOutput struct {
	Body struct {
		Books []BookResponse `json:"books"`
	}
}

// GetBookInput identifies a book by path.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// ActorBookInput identifies a book and the acting staff member.
type ActorBookInput struct {
	Actor string `header:"X-Actor" doc:"Acting staff member for the audit trail"`
	ID    string `path:"id" doc:"Book ID"`
}

// === Handlers ===

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Catalog.CreateBook(ctx, actorFrom(input.Actor), service.CreateBookInput{
		Title:     input.Body.Title,
		Author:    input.Body.Author,
		ISBN:      input.Body.ISBN,
		Publisher: input.Body.Publisher,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	books, err := s.services.Catalog.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListBooksOutput{}
	out.Body.Books = make([]BookResponse, len(books))
	for i, b := range books {
		out.Body.Books[i] = toBookResponse(b)
	}
	return out, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleResolveBook(ctx context.Context, input *ActorBookInput) (*BookOutput, error) {
	book, err := s.services.Circulation.ResolveBook(ctx, actorFrom(input.Actor), input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleRemoveBook(ctx context.Context, input *ActorBookInput) (*struct{}, error) {
	if err := s.services.Circulation.RemoveBook(ctx, actorFrom(input.Actor), input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}
