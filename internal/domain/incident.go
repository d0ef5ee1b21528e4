package domain

import "time"

// IncidentType classifies an adverse event concerning a book.
type IncidentType string

// Incident types.
const (
	IncidentDamaged IncidentType = "damaged"
	IncidentLost    IncidentType = "lost"
	IncidentMissing IncidentType = "missing"
)

// Valid reports whether t is a known incident type.
func (t IncidentType) Valid() bool {
	switch t {
	case IncidentDamaged, IncidentLost, IncidentMissing:
		return true
	}
	return false
}

// BookStatus returns the book status an incident of this type maps to.
// Missing books are treated as lost.
func (t IncidentType) BookStatus() BookStatus {
	switch t {
	case IncidentDamaged:
		return BookDamaged
	case IncidentLost, IncidentMissing:
		return BookLost
	}
	return BookLost
}

// CompensationStatus tracks whether an incident has been settled.
type CompensationStatus string

// Compensation statuses.
const (
	CompensationPending CompensationStatus = "pending"
	CompensationPaid    CompensationStatus = "paid"
	CompensationWaived  CompensationStatus = "waived"
)

// Incident is a recorded adverse event concerning a book. Incidents are a
// historical record: created once, never deleted.
//
// BorrowerID is optional - a "missing from shelf" incident has no borrower.
type Incident struct {
	ID           string             `json:"id"`
	BookID       string             `json:"book_id"`
	BorrowerID   string             `json:"borrower_id,omitempty"`
	Type         IncidentType       `json:"type"`
	Notes        string             `json:"notes,omitempty"`
	Compensation CompensationStatus `json:"compensation"`
	ReportedAt   time.Time          `json:"reported_at"`
}
