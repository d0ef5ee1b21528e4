package search

import (
	"context"
	"log/slog"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

// Service connects the catalog index to the store. It implements
// store.SearchIndexer so book writes keep the index in sync, and exposes
// query and reindex operations to the API layer.
type Service struct {
	index  *Index
	store  *store.Store
	logger *slog.Logger
}

// NewService creates the search service and wires it into the store.
func NewService(index *Index, s *store.Store, logger *slog.Logger) *Service {
	svc := &Service{
		index:  index,
		store:  s,
		logger: logger,
	}
	s.SetSearchIndexer(svc)
	return svc
}

// IndexBook indexes or re-indexes one catalog entry.
func (s *Service) IndexBook(_ context.Context, book *store.Indexable) error {
	return s.index.IndexDocument(fromIndexable(book))
}

// DeleteBook removes a catalog entry from the index.
func (s *Service) DeleteBook(_ context.Context, bookID string) error {
	return s.index.DeleteDocument(bookID)
}

// Search runs a catalog query.
func (s *Service) Search(ctx context.Context, params Params) (*Result, error) {
	return s.index.Search(ctx, params)
}

// Reindex rebuilds the index from the store. Removed books are excluded:
// they are not findable through catalog search.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if err := s.index.Rebuild(); err != nil {
		return 0, err
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return 0, err
	}

	docs := make([]*Document, 0, len(books))
	for _, book := range books {
		if book.Status == domain.BookRemoved {
			continue
		}
		docs = append(docs, &Document{
			ID:        book.ID,
			Title:     book.Title,
			Author:    book.Author,
			ISBN:      book.ISBN,
			Publisher: book.Publisher,
			Status:    string(book.Status),
		})
	}
	if err := s.index.IndexDocuments(docs); err != nil {
		return 0, err
	}

	s.logger.Info("catalog reindex complete", "documents", len(docs))
	return len(docs), nil
}

// DocumentCount returns the number of indexed catalog entries.
func (s *Service) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
