// Package domain contains the core business entities and lending rules for the Bookwarden library.
package domain

import (
	"time"
)

// BookStatus is the circulation status of a book. It only changes through
// the transitions in Book.CanTransition; handlers must switch on it
// exhaustively rather than comparing raw strings.
type BookStatus string

// Book statuses.
const (
	// BookAvailable means the book is on the shelf and can be loaned.
	BookAvailable BookStatus = "available"

	// BookOnLoan means an open loan exists for the book.
	BookOnLoan BookStatus = "on_loan"

	// BookOverdue means the open loan has passed its expected return date.
	BookOverdue BookStatus = "overdue"

	// BookLost means the book was reported lost or missing, or aged out of
	// overdue during a sweep.
	BookLost BookStatus = "lost"

	// BookDamaged means a damage incident was reported for the book.
	BookDamaged BookStatus = "damaged"

	// BookRemoved means the book was administratively withdrawn from
	// circulation. Terminal.
	BookRemoved BookStatus = "removed"
)

// Valid reports whether s is a known book status.
func (s BookStatus) Valid() bool {
	switch s {
	case BookAvailable, BookOnLoan, BookOverdue, BookLost, BookDamaged, BookRemoved:
		return true
	}
	return false
}

// Loanable reports whether a new loan may be created for a book in this status.
func (s BookStatus) Loanable() bool {
	return s == BookAvailable
}

// CanTransition reports whether the engine may move a book from s to target.
// This is the single authority for book status edges; every engine operation
// checks it before writing.
func (s BookStatus) CanTransition(target BookStatus) bool {
	// Administrative removal is allowed from any state.
	if target == BookRemoved {
		return s != BookRemoved
	}

	switch s {
	case BookAvailable:
		// Lost/Damaged from Available covers incidents on shelved books
		// ("missing from shelf" has no transaction).
		return target == BookOnLoan || target == BookLost || target == BookDamaged
	case BookOnLoan:
		return target == BookAvailable || target == BookOverdue ||
			target == BookLost || target == BookDamaged
	case BookOverdue:
		return target == BookAvailable || target == BookLost || target == BookDamaged
	case BookLost, BookDamaged:
		// Administrative resolve puts the book back on the shelf.
		return target == BookAvailable
	case BookRemoved:
		return false
	}
	return false
}

// Book represents a physical book in the lending collection.
type Book struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Author    string     `json:"author,omitempty"`
	ISBN      string     `json:"isbn,omitempty"`
	Publisher string     `json:"publisher,omitempty"`
	Status    BookStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
