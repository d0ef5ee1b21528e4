package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
)

// newTestStore creates a store backed by a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStore_BookRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := &domain.Book{
		ID:        "book-1",
		Title:     "The Left Hand of Darkness",
		Author:    "Ursula K. Le Guin",
		Status:    domain.BookAvailable,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	err := s.Update(ctx, func(tx *Tx) error {
		return tx.PutBook(book)
	})
	require.NoError(t, err)

	got, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)
	assert.Equal(t, domain.BookAvailable, got.Status)

	_, err = s.GetBook(ctx, "book-missing")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestStore_ActiveLoanIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loan := &domain.Loan{
		ID:                 "loan-1",
		BookID:             "book-1",
		BorrowerID:         "brw-1",
		Status:             domain.LoanOpen,
		LoanDate:           time.Now(),
		ExpectedReturnDate: time.Now().AddDate(0, 0, 14),
	}

	err := s.Update(ctx, func(tx *Tx) error {
		return tx.PutLoan(loan)
	})
	require.NoError(t, err)

	// Open loan is visible through the active index.
	err = s.View(ctx, func(tx *Tx) error {
		active, err := tx.ActiveLoanForBook("book-1")
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, "loan-1", active.ID)
		return nil
	})
	require.NoError(t, err)

	// Overdue keeps the loan active.
	loan.Status = domain.LoanOverdue
	require.NoError(t, s.Update(ctx, func(tx *Tx) error { return tx.PutLoan(loan) }))

	err = s.View(ctx, func(tx *Tx) error {
		active, err := tx.ActiveLoanForBook("book-1")
		require.NoError(t, err)
		require.NotNil(t, active)
		return nil
	})
	require.NoError(t, err)

	// Returning clears the index.
	now := time.Now()
	loan.Status = domain.LoanReturned
	loan.ActualReturnDate = &now
	require.NoError(t, s.Update(ctx, func(tx *Tx) error { return tx.PutLoan(loan) }))

	err = s.View(ctx, func(tx *Tx) error {
		active, err := tx.ActiveLoanForBook("book-1")
		require.NoError(t, err)
		assert.Nil(t, active)
		return nil
	})
	require.NoError(t, err)

	// History is still queryable per borrower.
	loans, err := s.LoansByBorrower(ctx, "brw-1")
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, domain.LoanReturned, loans[0].Status)
}

func TestStore_WaitlistOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	entries := []*domain.WaitlistEntry{
		{ID: "wl-c", BookID: "book-1", BorrowerID: "brw-3", EnqueuedAt: base.Add(30 * time.Second)},
		{ID: "wl-a", BookID: "book-1", BorrowerID: "brw-1", EnqueuedAt: base.Add(10 * time.Second)},
		{ID: "wl-b", BookID: "book-1", BorrowerID: "brw-2", EnqueuedAt: base.Add(20 * time.Second)},
	}

	err := s.Update(ctx, func(tx *Tx) error {
		for _, e := range entries {
			if err := tx.PutWaitlistEntry(e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	queue, err := s.Waitlist(ctx, "book-1")
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, "wl-a", queue[0].ID)
	assert.Equal(t, "wl-b", queue[1].ID)
	assert.Equal(t, "wl-c", queue[2].ID)

	// Cancelling the middle entry keeps relative order of the rest.
	err = s.Update(ctx, func(tx *Tx) error {
		return tx.DeleteWaitlistEntry(queue[1])
	})
	require.NoError(t, err)

	queue, err = s.Waitlist(ctx, "book-1")
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "wl-a", queue[0].ID)
	assert.Equal(t, "wl-c", queue[1].ID)

	// Duplicate guard lookup.
	err = s.View(ctx, func(tx *Tx) error {
		entry, err := tx.WaitlistEntryFor("book-1", "brw-1")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "wl-a", entry.ID)

		gone, err := tx.WaitlistEntryFor("book-1", "brw-2")
		require.NoError(t, err)
		assert.Nil(t, gone)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_WaitlistHead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.View(ctx, func(tx *Tx) error {
		head, err := tx.WaitlistHead("book-1")
		require.NoError(t, err)
		assert.Nil(t, head, "empty queue has no head")
		return nil
	})
	require.NoError(t, err)

	base := time.Now()
	err = s.Update(ctx, func(tx *Tx) error {
		for i, id := range []string{"wl-x", "wl-y"} {
			entry := &domain.WaitlistEntry{
				ID:         id,
				BookID:     "book-1",
				BorrowerID: "brw-" + id,
				EnqueuedAt: base.Add(time.Duration(i) * time.Second),
			}
			if err := tx.PutWaitlistEntry(entry); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.View(ctx, func(tx *Tx) error {
		head, err := tx.WaitlistHead("book-1")
		require.NoError(t, err)
		require.NotNil(t, head)
		assert.Equal(t, "wl-x", head.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_AuditAppendAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	append := func(action domain.AuditAction, entityID, bookID, actor string, ts time.Time) {
		t.Helper()
		err := s.Update(ctx, func(tx *Tx) error {
			return tx.AppendAudit(&domain.AuditEntry{
				Action:    action,
				Actor:     actor,
				EntityID:  entityID,
				BookID:    bookID,
				Timestamp: ts,
			})
		})
		require.NoError(t, err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	append(domain.AuditLoanCreated, "loan-1", "book-1", "desk", base)
	append(domain.AuditLoanReturned, "loan-1", "book-1", "desk", base.Add(time.Hour))
	append(domain.AuditLoanCreated, "loan-2", "book-2", "system", base.Add(2*time.Hour))

	all, err := s.QueryAudit(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Sequence numbers are strictly increasing.
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Seq, all[i-1].Seq)
	}

	byBook, err := s.QueryAudit(ctx, AuditFilter{BookID: "book-1"})
	require.NoError(t, err)
	assert.Len(t, byBook, 2)

	byActor, err := s.QueryAudit(ctx, AuditFilter{Actor: "system"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "loan-2", byActor[0].EntityID)

	byTime, err := s.QueryAudit(ctx, AuditFilter{From: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, byTime, 2)

	limited, err := s.QueryAudit(ctx, AuditFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := &domain.Book{ID: "book-1", Title: "T", Status: domain.BookAvailable}
	boom := domainerrors.Internal("boom")

	err := s.Update(ctx, func(tx *Tx) error {
		if err := tx.PutBook(book); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing was written.
	_, err = s.GetBook(ctx, "book-1")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
