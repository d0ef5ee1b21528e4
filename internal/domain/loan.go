package domain

import "time"

// LoanStatus is the lifecycle state of a loan transaction.
type LoanStatus string

// Loan statuses. Returned and Lost are terminal.
const (
	LoanOpen     LoanStatus = "open"
	LoanReturned LoanStatus = "returned"
	LoanOverdue  LoanStatus = "overdue"
	LoanLost     LoanStatus = "lost"
)

// Valid reports whether s is a known loan status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanOpen, LoanReturned, LoanOverdue, LoanLost:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s LoanStatus) Terminal() bool {
	return s == LoanReturned || s == LoanLost
}

// Active reports whether the loan still holds the book
// (exactly one active loan may exist per book).
func (s LoanStatus) Active() bool {
	return s == LoanOpen || s == LoanOverdue
}

// CanTransition reports whether a loan may move from s to target.
func (s LoanStatus) CanTransition(target LoanStatus) bool {
	switch s {
	case LoanOpen:
		return target == LoanReturned || target == LoanOverdue || target == LoanLost
	case LoanOverdue:
		return target == LoanReturned || target == LoanLost
	case LoanReturned, LoanLost:
		return false
	}
	return false
}

// Loan represents one borrow-return cycle for a specific book and borrower.
//
// Invariant: ActualReturnDate is non-nil if and only if Status is LoanReturned.
type Loan struct {
	ID                 string     `json:"id"`
	BookID             string     `json:"book_id"`
	BorrowerID         string     `json:"borrower_id"`
	Status             LoanStatus `json:"status"`
	LoanDate           time.Time  `json:"loan_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// OverdueDays returns how many whole days the loan is past its expected
// return date at the given instant. Always derived, never stored, so it
// cannot go negative or drift stale.
func (l *Loan) OverdueDays(now time.Time) int {
	if !now.After(l.ExpectedReturnDate) {
		return 0
	}
	days := int(now.Sub(l.ExpectedReturnDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// IsDue reports whether the loan has passed its expected return date.
func (l *Loan) IsDue(now time.Time) bool {
	return l.Status == LoanOpen && now.After(l.ExpectedReturnDate)
}
