package store

import (
	"context"
	"sort"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	var book *domain.Book
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		book, err = tx.GetBook(id)
		return err
	})
	return book, err
}

// ListBooks returns all books ordered by title.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	var books []*domain.Book
	err := s.View(ctx, func(tx *Tx) error {
		return tx.scan([]byte(bookPrefix), func(val []byte) error {
			var book domain.Book
			if err := unmarshal(val, &book); err != nil {
				return err
			}
			books = append(books, &book)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].Title == books[j].Title {
			return books[i].ID < books[j].ID
		}
		return books[i].Title < books[j].Title
	})
	return books, nil
}

// indexBook pushes a book into the search index. Index updates are
// best-effort: a failed index write is logged, never surfaced, because
// search lag must not fail lending operations.
func (s *Store) indexBook(ctx context.Context, book *domain.Book) {
	doc := &Indexable{
		ID:     book.ID,
		Title:  book.Title,
		Author: book.Author,
		ISBN:   book.ISBN,
		Status: string(book.Status),
	}
	if err := s.searchIndexer.IndexBook(ctx, doc); err != nil && s.logger != nil {
		s.logger.Warn("index book failed", "book_id", book.ID, "error", err)
	}
}

// IndexBook exposes indexBook for rebuilds and post-commit hooks.
func (s *Store) IndexBook(ctx context.Context, book *domain.Book) {
	s.indexBook(ctx, book)
}

// DeleteFromIndex drops a book from the search index.
func (s *Store) DeleteFromIndex(ctx context.Context, bookID string) error {
	return s.searchIndexer.DeleteBook(ctx, bookID)
}
