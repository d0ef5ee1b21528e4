package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
)

func TestWaitlist_EnqueueRules(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book := e.addBook(t, "Dune")
	holder := e.addBorrower(t, "Alice")
	waiting := e.addBorrower(t, "Bob")

	// An available book cannot be waited on.
	_, err := e.waitlist.Enqueue(ctx, "test", book.ID, waiting.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))

	e.loan(t, book.ID, holder.ID, 14*24*time.Hour)

	entry, err := e.waitlist.Enqueue(ctx, "test", book.ID, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, entry.BookID)

	// One entry per borrower per book.
	_, err = e.waitlist.Enqueue(ctx, "test", book.ID, waiting.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))

	// Suspended borrowers cannot join a queue.
	suspended := e.addBorrower(t, "Carol")
	_, err = e.catalog.SetBorrowerStatus(ctx, "admin", suspended.ID, domain.MembershipSuspended)
	require.NoError(t, err)
	_, err = e.waitlist.Enqueue(ctx, "test", book.ID, suspended.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	_, err = e.waitlist.Enqueue(ctx, "test", "book-missing", waiting.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestWaitlist_CancelKeepsOrder(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book := e.addBook(t, "Dune")
	holder := e.addBorrower(t, "Alice")
	e.loan(t, book.ID, holder.ID, 14*24*time.Hour)

	var ids []string
	for _, name := range []string{"Bob", "Carol", "Dave"} {
		b := e.addBorrower(t, name)
		_, err := e.waitlist.Enqueue(ctx, "test", book.ID, b.ID)
		require.NoError(t, err)
		ids = append(ids, b.ID)
		e.advance(time.Minute)
	}

	// Dropping the middle entry leaves everyone else in place.
	require.NoError(t, e.waitlist.Cancel(ctx, "test", book.ID, ids[1]))

	entries, err := e.waitlist.List(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ids[0], entries[0].BorrowerID)
	assert.Equal(t, ids[2], entries[1].BorrowerID)

	// Canceling an absent entry is NotFound.
	err = e.waitlist.Cancel(ctx, "test", book.ID, ids[1])
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
