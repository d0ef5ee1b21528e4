package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
	"github.com/bookwarden/bookwarden-server/internal/id"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

// WaitlistService manages the per-book queue of borrowers waiting for a
// book that is not currently available. Position is derived from enqueue
// time; entries are never renumbered.
type WaitlistService struct {
	store  *store.Store
	logger *slog.Logger

	now func() time.Time
}

// NewWaitlistService creates the waitlist service.
func NewWaitlistService(s *store.Store, logger *slog.Logger) *WaitlistService {
	return &WaitlistService{
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue adds a borrower to a book's waitlist.
//
// Fails with Conflict when the book is available (just borrow it) or when
// the borrower is already queued for this book, and Forbidden for
// suspended borrowers.
func (w *WaitlistService) Enqueue(ctx context.Context, actor, bookID, borrowerID string) (*domain.WaitlistEntry, error) {
	now := w.now()

	var entry *domain.WaitlistEntry
	err := w.store.Update(ctx, func(tx *store.Tx) error {
		book, err := tx.GetBook(bookID)
		if err != nil {
			return err
		}
		borrower, err := tx.GetBorrower(borrowerID)
		if err != nil {
			return err
		}

		if !borrower.CanLoan() {
			return domainerrors.Forbiddenf("borrower %s is suspended", borrowerID)
		}
		if book.Status == domain.BookRemoved {
			return domainerrors.InvalidTransitionf("book %s is removed from circulation", bookID)
		}
		if book.Status.Loanable() {
			return domainerrors.Conflictf("book %s is available, borrow it directly", bookID)
		}

		existing, err := tx.WaitlistEntryFor(bookID, borrowerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domainerrors.Conflictf("borrower %s is already waiting for book %s", borrowerID, bookID)
		}

		entryID, err := id.Generate("wl")
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "generate waitlist entry ID")
		}
		entry = &domain.WaitlistEntry{
			ID:         entryID,
			BookID:     bookID,
			BorrowerID: borrowerID,
			EnqueuedAt: now,
		}
		if err := tx.PutWaitlistEntry(entry); err != nil {
			return err
		}

		return tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditWaitlistEnqueued,
			Actor:     actor,
			EntityID:  entry.ID,
			BookID:    bookID,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("waitlist enqueued", "entry_id", entry.ID, "book_id", bookID, "borrower_id", borrowerID)
	return entry, nil
}

// Cancel removes a borrower's entry from a book's waitlist. Positions
// behind the removed entry are unaffected because order is derived from
// enqueue time, not stored.
func (w *WaitlistService) Cancel(ctx context.Context, actor, bookID, borrowerID string) error {
	now := w.now()

	err := w.store.Update(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetBook(bookID); err != nil {
			return err
		}
		entry, err := tx.WaitlistEntryFor(bookID, borrowerID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domainerrors.NotFoundf("borrower %s is not waiting for book %s", borrowerID, bookID)
		}
		if err := tx.DeleteWaitlistEntry(entry); err != nil {
			return err
		}
		return tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditWaitlistCanceled,
			Actor:     actor,
			EntityID:  entry.ID,
			BookID:    bookID,
			Timestamp: now,
		})
	})
	if err != nil {
		return err
	}

	w.logger.Info("waitlist canceled", "book_id", bookID, "borrower_id", borrowerID)
	return nil
}

// List returns a book's waitlist in serving order.
func (w *WaitlistService) List(ctx context.Context, bookID string) ([]*domain.WaitlistEntry, error) {
	if _, err := w.store.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return w.store.Waitlist(ctx, bookID)
}
