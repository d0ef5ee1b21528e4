package store

import (
	"context"
	"sort"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
)

// WaitlistEntryFor returns the borrower's entry for a book, or nil if the
// borrower is not queued.
func (t *Tx) WaitlistEntryFor(bookID, borrowerID string) (*domain.WaitlistEntry, error) {
	entryID, err := t.getRef(waitlistBorrowerKey(bookID, borrowerID))
	if err != nil {
		return nil, err
	}
	if entryID == "" {
		return nil, nil
	}
	var entry domain.WaitlistEntry
	if err := t.get(waitlistKey(bookID, entryID), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// PutWaitlistEntry writes an entry and its duplicate-guard index.
func (t *Tx) PutWaitlistEntry(entry *domain.WaitlistEntry) error {
	if err := t.put(waitlistKey(entry.BookID, entry.ID), entry); err != nil {
		return err
	}
	return t.put(waitlistBorrowerKey(entry.BookID, entry.BorrowerID), entry.ID)
}

// DeleteWaitlistEntry removes an entry and its index. Later entries keep
// their relative order automatically - position is derived from timestamps,
// nothing is renumbered.
func (t *Tx) DeleteWaitlistEntry(entry *domain.WaitlistEntry) error {
	if err := t.txn.Delete(waitlistKey(entry.BookID, entry.ID)); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "delete waitlist entry")
	}
	if err := t.txn.Delete(waitlistBorrowerKey(entry.BookID, entry.BorrowerID)); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "delete waitlist index")
	}
	return nil
}

// WaitlistForBook returns a book's queue ordered by (enqueue time, ID).
func (t *Tx) WaitlistForBook(bookID string) ([]*domain.WaitlistEntry, error) {
	var entries []*domain.WaitlistEntry
	err := t.scan([]byte(waitlistPrefix+bookID+":"), func(val []byte) error {
		var entry domain.WaitlistEntry
		if err := unmarshal(val, &entry); err != nil {
			return err
		}
		entries = append(entries, &entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Before(entries[j])
	})
	return entries, nil
}

// WaitlistHead returns the earliest entry in a book's queue, or nil when
// the queue is empty.
func (t *Tx) WaitlistHead(bookID string) (*domain.WaitlistEntry, error) {
	entries, err := t.WaitlistForBook(bookID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// Waitlist returns a book's queue outside an engine transaction.
func (s *Store) Waitlist(ctx context.Context, bookID string) ([]*domain.WaitlistEntry, error) {
	var entries []*domain.WaitlistEntry
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		entries, err = tx.WaitlistForBook(bookID)
		return err
	})
	return entries, err
}
