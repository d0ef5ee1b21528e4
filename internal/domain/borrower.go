package domain

import "time"

// MembershipStatus is a borrower's standing with the library.
type MembershipStatus string

// Membership statuses.
const (
	// MembershipActive means the borrower can create loans.
	MembershipActive MembershipStatus = "active"

	// MembershipInactive means the borrower has had no loan activity for
	// a long time. Inactive borrowers may still loan; the first new loan
	// flips them back to active.
	MembershipInactive MembershipStatus = "inactive"

	// MembershipSuspended means the borrower accumulated too many overdue
	// returns and may not create new loans.
	MembershipSuspended MembershipStatus = "suspended"
)

// Valid reports whether s is a known membership status.
func (s MembershipStatus) Valid() bool {
	switch s {
	case MembershipActive, MembershipInactive, MembershipSuspended:
		return true
	}
	return false
}

// RiskFlags are derived red flags summarizing a borrower's loan history.
// They are recomputed from the loan ledger and incident history; never set
// directly by handlers.
type RiskFlags struct {
	HasDelayedReturns bool `json:"has_delayed_returns"`
	HasLostBooks      bool `json:"has_lost_books"`
	HasDamagedBooks   bool `json:"has_damaged_books"`
}

// Borrower represents a library member who can hold loans.
type Borrower struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email,omitempty"`
	Status    MembershipStatus `json:"status"`
	Risk      RiskFlags        `json:"risk"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CanLoan reports whether the borrower is allowed to open a new loan.
func (b *Borrower) CanLoan() bool {
	return b.Status != MembershipSuspended
}
