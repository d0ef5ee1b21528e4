package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

func TestSweep_MarksOverdue(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book := e.addBook(t, "Dune")
	other := e.addBook(t, "Hyperion")
	borrower := e.addBorrower(t, "Alice")
	late := e.loan(t, book.ID, borrower.ID, 7*24*time.Hour)
	onTime := e.loan(t, other.ID, borrower.ID, 30*24*time.Hour)

	e.advance(13 * 24 * time.Hour)

	transitions, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, late.ID, transitions[0].LoanID)
	assert.Equal(t, domain.LoanOpen, transitions[0].Old)
	assert.Equal(t, domain.LoanOverdue, transitions[0].New)

	gotLoan, err := e.store.GetLoan(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanOverdue, gotLoan.Status)
	// Six whole days past due, derived at read time.
	assert.Equal(t, 6, gotLoan.OverdueDays(e.clock))

	gotBook, err := e.store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookOverdue, gotBook.Status)

	untouched, err := e.store.GetLoan(ctx, onTime.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanOpen, untouched.Status)
}

func TestSweep_SecondPassIsNoop(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book := e.addBook(t, "Dune")
	borrower := e.addBorrower(t, "Alice")
	e.loan(t, book.ID, borrower.ID, 7*24*time.Hour)

	e.advance(10 * 24 * time.Hour)

	first, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	auditBefore := e.audit(t, store.AuditFilter{})

	second, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)

	auditAfter := e.audit(t, store.AuditFilter{})
	assert.Len(t, auditAfter, len(auditBefore))
}

func TestSweep_WritesOffLongOverdueLoans(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book := e.addBook(t, "Dune")
	borrower := e.addBorrower(t, "Alice")
	loan := e.loan(t, book.ID, borrower.ID, 7*24*time.Hour)

	e.advance(10 * 24 * time.Hour)
	_, err := e.sweep.Run(ctx)
	require.NoError(t, err)

	// Past the 60-day lost threshold.
	e.advance(60 * 24 * time.Hour)
	transitions, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, domain.LoanOverdue, transitions[0].Old)
	assert.Equal(t, domain.LoanLost, transitions[0].New)

	gotLoan, err := e.store.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanLost, gotLoan.Status)

	gotBook, err := e.store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookLost, gotBook.Status)

	gotBorrower, err := e.store.GetBorrower(ctx, borrower.ID)
	require.NoError(t, err)
	assert.True(t, gotBorrower.Risk.HasLostBooks)

	// A lost loan is terminal; further passes leave it alone.
	again, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestSweep_ReturnAfterOverdueClearsBook(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book := e.addBook(t, "Dune")
	borrower := e.addBorrower(t, "Alice")
	loan := e.loan(t, book.ID, borrower.ID, 7*24*time.Hour)

	e.advance(10 * 24 * time.Hour)
	_, err := e.sweep.Run(ctx)
	require.NoError(t, err)

	returned, err := e.circulation.ReturnBook(ctx, "test", loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanReturned, returned.Status)

	gotBook, err := e.store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookAvailable, gotBook.Status)

	gotBorrower, err := e.store.GetBorrower(ctx, borrower.ID)
	require.NoError(t, err)
	assert.True(t, gotBorrower.Risk.HasDelayedReturns)
}

func TestSweep_RecomputeBorrowersFlagsInactivity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book := e.addBook(t, "Dune")
	dormant := e.addBorrower(t, "Alice")
	loan := e.loan(t, book.ID, dormant.ID, 7*24*time.Hour)
	_, err := e.circulation.ReturnBook(ctx, "test", loan.ID)
	require.NoError(t, err)

	e.advance(366 * 24 * time.Hour)
	active := e.addBorrower(t, "Bob")
	e.loan(t, e.addBook(t, "Hyperion").ID, active.ID, 7*24*time.Hour)

	changed, err := e.sweep.RecomputeBorrowers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	got, err := e.store.GetBorrower(ctx, dormant.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipInactive, got.Status)

	stillActive, err := e.store.GetBorrower(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipActive, stillActive.Status)
}
