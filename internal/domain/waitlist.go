package domain

import "time"

// WaitlistEntry is a borrower's pending claim on a currently-unavailable book.
//
// Queue position is always derived from (EnqueuedAt, ID) ordering - there is
// no stored position to renumber when an earlier entry is cancelled.
type WaitlistEntry struct {
	ID         string    `json:"id"`
	BookID     string    `json:"book_id"`
	BorrowerID string    `json:"borrower_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Notified   bool      `json:"notified"`
}

// Before reports whether e is served ahead of other. Earlier enqueue time
// wins; ties break on ID so the order is total.
func (e *WaitlistEntry) Before(other *WaitlistEntry) bool {
	if e.EnqueuedAt.Equal(other.EnqueuedAt) {
		return e.ID < other.ID
	}
	return e.EnqueuedAt.Before(other.EnqueuedAt)
}
