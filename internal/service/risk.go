package service

import (
	"time"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/domain"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

// RiskScorer derives borrower risk flags and membership status from loan
// and incident history.
//
// Scoring is a pure function of (history, now): the engine recomputes it
// inside the transaction of every write affecting the borrower, so running
// it once per event or once over the full history yields the same result.
type RiskScorer struct {
	cfg config.RiskConfig
}

// NewRiskScorer creates a risk scorer with the given thresholds.
func NewRiskScorer(cfg config.RiskConfig) *RiskScorer {
	return &RiskScorer{cfg: cfg}
}

// Score computes risk flags and membership status from full history.
func (r *RiskScorer) Score(loans []*domain.Loan, incidents []*domain.Incident, now time.Time) (domain.RiskFlags, domain.MembershipStatus) {
	var flags domain.RiskFlags

	overdueInWindow := 0
	var lastActivity time.Time

	for _, loan := range loans {
		if wasOverdue(loan, now) {
			flags.HasDelayedReturns = true
			// The loan went overdue the moment its expected return date
			// passed; that instant is what the trailing window counts.
			if loan.ExpectedReturnDate.After(now.Add(-r.cfg.SuspendWindow)) {
				overdueInWindow++
			}
		}
		if loan.Status == domain.LoanLost {
			flags.HasLostBooks = true
		}
		if loan.LoanDate.After(lastActivity) {
			lastActivity = loan.LoanDate
		}
		if loan.ActualReturnDate != nil && loan.ActualReturnDate.After(lastActivity) {
			lastActivity = *loan.ActualReturnDate
		}
	}

	for _, inc := range incidents {
		switch inc.Type {
		case domain.IncidentDamaged:
			flags.HasDamagedBooks = true
		case domain.IncidentLost, domain.IncidentMissing:
			flags.HasLostBooks = true
		}
	}

	status := domain.MembershipActive
	if lastActivity.IsZero() || lastActivity.Before(now.Add(-r.cfg.InactivityWindow)) {
		status = domain.MembershipInactive
	}
	if overdueInWindow >= r.cfg.SuspendOverdueCount {
		status = domain.MembershipSuspended
	}

	return flags, status
}

// Recompute re-derives a borrower's flags and status inside the given
// transaction and writes the borrower back if anything changed. Returns the
// updated borrower and whether a write happened.
func (r *RiskScorer) Recompute(tx *store.Tx, borrowerID string, now time.Time) (*domain.Borrower, bool, error) {
	borrower, err := tx.GetBorrower(borrowerID)
	if err != nil {
		return nil, false, err
	}

	loans, err := tx.LoansByBorrower(borrowerID)
	if err != nil {
		return nil, false, err
	}
	incidents, err := tx.IncidentsByBorrower(borrowerID)
	if err != nil {
		return nil, false, err
	}

	flags, status := r.Score(loans, incidents, now)
	if flags == borrower.Risk && status == borrower.Status {
		return borrower, false, nil
	}

	borrower.Risk = flags
	borrower.Status = status
	borrower.UpdatedAt = now
	if err := tx.PutBorrower(borrower); err != nil {
		return nil, false, err
	}
	return borrower, true, nil
}

// wasOverdue reports whether the loan ever crossed its expected return
// date while active: it is overdue now, was returned late, or was written
// off as lost after falling due.
func wasOverdue(loan *domain.Loan, now time.Time) bool {
	switch loan.Status {
	case domain.LoanOverdue:
		return true
	case domain.LoanReturned:
		return loan.ActualReturnDate != nil && loan.ActualReturnDate.After(loan.ExpectedReturnDate)
	case domain.LoanLost:
		return loan.ExpectedReturnDate.Before(now)
	case domain.LoanOpen:
		return now.After(loan.ExpectedReturnDate)
	}
	return false
}
