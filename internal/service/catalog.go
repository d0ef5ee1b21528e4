package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/domain"
	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
	"github.com/bookwarden/bookwarden-server/internal/id"
	"github.com/bookwarden/bookwarden-server/internal/metadata/openlibrary"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

// MetadataLookup resolves an ISBN to catalog metadata. Satisfied by the
// Open Library client; nil disables enrichment.
type MetadataLookup interface {
	LookupISBN(ctx context.Context, isbn string) (*openlibrary.BookInfo, error)
}

// CatalogService manages books and borrowers: creation, lookup, and the
// administrative membership operations. Status transitions driven by
// lending live in CirculationService; the catalog only ever touches
// membership status directly.
type CatalogService struct {
	store    *store.Store
	metadata MetadataLookup
	logger   *slog.Logger
	cfg      config.MetadataConfig

	now func() time.Time
}

// NewCatalogService creates the catalog service.
func NewCatalogService(s *store.Store, metadata MetadataLookup, cfg config.MetadataConfig, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:    s,
		metadata: metadata,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CreateBookInput holds user-supplied book fields. Title and author may be
// omitted when an ISBN is given; enrichment fills them in.
type CreateBookInput struct {
	Title     string
	Author    string
	ISBN      string
	Publisher string
}

// CreateBook adds a book to the catalog, status Available. When an ISBN is
// supplied and enrichment is enabled, missing fields are filled from Open
// Library; enrichment failures are logged and ignored so an offline
// metadata provider never blocks cataloging.
func (c *CatalogService) CreateBook(ctx context.Context, actor string, input CreateBookInput) (*domain.Book, error) {
	if input.ISBN != "" && c.cfg.Enabled && c.metadata != nil {
		c.enrich(ctx, &input)
	}
	if input.Title == "" {
		return nil, domainerrors.Validation("title is required")
	}

	now := c.now()
	bookID, err := id.Generate("book")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate book ID")
	}
	book := &domain.Book{
		ID:        bookID,
		Title:     input.Title,
		Author:    input.Author,
		ISBN:      input.ISBN,
		Publisher: input.Publisher,
		Status:    domain.BookAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = c.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.PutBook(book); err != nil {
			return err
		}
		return tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditBookCreated,
			Actor:     actor,
			EntityID:  book.ID,
			BookID:    book.ID,
			New:       domain.StatusSnapshot{BookStatus: domain.BookAvailable},
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	c.store.IndexBook(ctx, book)
	c.logger.Info("book created", "book_id", book.ID, "title", book.Title)
	return book, nil
}

// enrich fills empty input fields from Open Library.
func (c *CatalogService) enrich(ctx context.Context, input *CreateBookInput) {
	info, err := c.metadata.LookupISBN(ctx, input.ISBN)
	if err != nil {
		c.logger.Warn("metadata enrichment failed", "isbn", input.ISBN, "error", err)
		return
	}
	if input.Title == "" {
		input.Title = info.Title
	}
	if input.Author == "" {
		input.Author = info.Author
	}
	if input.Publisher == "" {
		input.Publisher = info.Publisher
	}
}

// GetBook retrieves a book by ID.
func (c *CatalogService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	return c.store.GetBook(ctx, bookID)
}

// ListBooks returns the catalog ordered by title.
func (c *CatalogService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return c.store.ListBooks(ctx)
}

// CreateBorrower registers a new borrower, status Active.
func (c *CatalogService) CreateBorrower(ctx context.Context, actor, name, email string) (*domain.Borrower, error) {
	if name == "" {
		return nil, domainerrors.Validation("name is required")
	}

	now := c.now()
	borrowerID, err := id.Generate("brw")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate borrower ID")
	}
	borrower := &domain.Borrower{
		ID:        borrowerID,
		Name:      name,
		Email:     email,
		Status:    domain.MembershipActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = c.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.PutBorrower(borrower); err != nil {
			return err
		}
		return tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditBorrowerCreated,
			Actor:     actor,
			EntityID:  borrower.ID,
			New:       domain.StatusSnapshot{BorrowerStatus: domain.MembershipActive},
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("borrower created", "borrower_id", borrower.ID, "name", name)
	return borrower, nil
}

// GetBorrower retrieves a borrower by ID.
func (c *CatalogService) GetBorrower(ctx context.Context, borrowerID string) (*domain.Borrower, error) {
	return c.store.GetBorrower(ctx, borrowerID)
}

// ListBorrowers returns all borrowers ordered by name.
func (c *CatalogService) ListBorrowers(ctx context.Context) ([]*domain.Borrower, error) {
	return c.store.ListBorrowers(ctx)
}

// SetBorrowerStatus is the administrative override for membership status,
// used to suspend a borrower manually or lift a suspension early. The next
// risk recomputation may re-suspend if the history still warrants it.
func (c *CatalogService) SetBorrowerStatus(ctx context.Context, actor, borrowerID string, status domain.MembershipStatus) (*domain.Borrower, error) {
	if !status.Valid() {
		return nil, domainerrors.Validationf("unknown membership status %q", status)
	}
	now := c.now()

	var borrower *domain.Borrower
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		borrower, err = tx.GetBorrower(borrowerID)
		if err != nil {
			return err
		}
		if borrower.Status == status {
			return nil
		}

		old := borrower.Status
		borrower.Status = status
		borrower.UpdatedAt = now
		if err := tx.PutBorrower(borrower); err != nil {
			return err
		}
		return tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditBorrowerStatus,
			Actor:     actor,
			EntityID:  borrowerID,
			Old:       domain.StatusSnapshot{BorrowerStatus: old},
			New:       domain.StatusSnapshot{BorrowerStatus: status},
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("borrower status set", "borrower_id", borrowerID, "status", status)
	return borrower, nil
}

// BorrowerLoans returns a borrower's full loan history.
func (c *CatalogService) BorrowerLoans(ctx context.Context, borrowerID string) ([]*domain.Loan, error) {
	if _, err := c.store.GetBorrower(ctx, borrowerID); err != nil {
		return nil, err
	}
	return c.store.LoansByBorrower(ctx, borrowerID)
}
