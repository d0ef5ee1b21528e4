// Package notify implements Server-Sent Events for real-time circulation
// updates: front-desk clients learn about returns, waitlist hand-offs, and
// sweep transitions without polling.
package notify

import (
	"time"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventLoanCreated fires when a loan opens, including waitlist
	// auto-loans.
	EventLoanCreated EventType = "loan.created"
	// EventLoanReturned fires when a loan closes.
	EventLoanReturned EventType = "loan.returned"

	// EventWaitlistServed fires when the head of a waitlist receives the
	// book.
	EventWaitlistServed EventType = "waitlist.served"

	// EventBookStatusChanged fires on incident, resolve, and removal
	// transitions.
	EventBookStatusChanged EventType = "book.status_changed"

	// EventHeartbeat is a connection keepalive.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one SSE event sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
	}
}

// WaitlistServedData is the payload of a waitlist.served event.
type WaitlistServedData struct {
	EntryID    string `json:"entry_id"`
	BookID     string `json:"book_id"`
	BorrowerID string `json:"borrower_id"`
	LoanID     string `json:"loan_id"`
}

// NewWaitlistServedEvent creates the event for a served waitlist entry.
func NewWaitlistServedEvent(entry *domain.WaitlistEntry, loan *domain.Loan) Event {
	return Event{
		Type:      EventWaitlistServed,
		Timestamp: time.Now(),
		Data: WaitlistServedData{
			EntryID:    entry.ID,
			BookID:     entry.BookID,
			BorrowerID: entry.BorrowerID,
			LoanID:     loan.ID,
		},
	}
}

// BookStatusData is the payload of a book.status_changed event.
type BookStatusData struct {
	BookID string `json:"book_id"`
	Status string `json:"status"`
}

// NewBookStatusEvent creates the event for a book status transition.
func NewBookStatusEvent(bookID string, status domain.BookStatus) Event {
	return Event{
		Type:      EventBookStatusChanged,
		Timestamp: time.Now(),
		Data: BookStatusData{
			BookID: bookID,
			Status: string(status),
		},
	}
}

// LoanData is the payload of loan.created and loan.returned events.
type LoanData struct {
	LoanID     string `json:"loan_id"`
	BookID     string `json:"book_id"`
	BorrowerID string `json:"borrower_id"`
}

// NewLoanEvent creates a loan lifecycle event.
func NewLoanEvent(typ EventType, loan *domain.Loan) Event {
	return Event{
		Type:      typ,
		Timestamp: time.Now(),
		Data: LoanData{
			LoanID:     loan.ID,
			BookID:     loan.BookID,
			BorrowerID: loan.BorrowerID,
		},
	}
}
