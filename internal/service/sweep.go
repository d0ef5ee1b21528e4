package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/domain"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

// sweepActor identifies the scheduled sweep in audit entries.
const sweepActor = "system:sweep"

// Transition describes one status change made by a sweep pass.
type Transition struct {
	LoanID string            `json:"loan_id"`
	BookID string            `json:"book_id"`
	Old    domain.LoanStatus `json:"old"`
	New    domain.LoanStatus `json:"new"`

	// BookStatus is the book's status after the transition.
	BookStatus domain.BookStatus `json:"book_status"`

	// bookChanged records whether the book moved with the loan. A book in
	// an incident state keeps it while its loan goes overdue.
	bookChanged bool
}

// SweepService walks active loans on a schedule and applies the
// time-derived transitions: open loans past their return date become
// overdue, and loans overdue past the lost threshold are written off.
//
// Running the sweep twice over the same state is a no-op the second time;
// the sweep never re-applies a transition already reflected in the store.
type SweepService struct {
	store    *store.Store
	risk     *RiskScorer
	notifier Notifier
	logger   *slog.Logger
	cfg      config.SweepConfig

	now func() time.Time
}

// NewSweepService creates the overdue sweeper.
func NewSweepService(s *store.Store, risk *RiskScorer, notifier Notifier, cfg config.SweepConfig, logger *slog.Logger) *SweepService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &SweepService{
		store:    s,
		risk:     risk,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run executes one sweep pass and returns the transitions it applied.
//
// Each loan is handled in its own transaction so a conflict with a
// concurrent return on one book cannot stall the rest of the pass. A loan
// that changed under us since the scan is simply skipped; the next pass
// picks it up if it still qualifies.
func (s *SweepService) Run(ctx context.Context) ([]Transition, error) {
	now := s.now()

	active, err := s.store.ActiveLoans(ctx)
	if err != nil {
		return nil, err
	}

	transitions := make([]Transition, 0)
	for _, candidate := range active {
		tr, err := s.sweepLoan(ctx, candidate.ID, now)
		if err != nil {
			s.logger.Warn("sweep loan failed", "loan_id", candidate.ID, "error", err)
			continue
		}
		if tr != nil {
			transitions = append(transitions, *tr)
			if tr.bookChanged {
				s.notifier.BookStatusChanged(tr.BookID, tr.BookStatus)
			}
		}
	}

	s.logger.Info("sweep pass complete",
		"scanned", len(active),
		"transitions", len(transitions),
	)
	return transitions, nil
}

// sweepLoan re-reads one loan inside a transaction and applies at most one
// transition to it.
func (s *SweepService) sweepLoan(ctx context.Context, loanID string, now time.Time) (*Transition, error) {
	var tr *Transition
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		tr = nil
		loan, err := tx.GetLoan(loanID)
		if err != nil {
			return err
		}

		switch {
		case loan.Status == domain.LoanOpen && loan.IsDue(now):
			return s.markOverdue(tx, loan, now, &tr)
		case loan.Status == domain.LoanOverdue && loan.OverdueDays(now) >= s.cfg.LostThresholdDays:
			return s.markLost(tx, loan, now, &tr)
		}
		return nil
	})
	return tr, err
}

// markOverdue flips an open, past-due loan and its book to overdue.
func (s *SweepService) markOverdue(tx *store.Tx, loan *domain.Loan, now time.Time, out **Transition) error {
	book, err := tx.GetBook(loan.BookID)
	if err != nil {
		return err
	}

	oldBook := book.Status
	loan.Status = domain.LoanOverdue
	loan.UpdatedAt = now
	if err := tx.PutLoan(loan); err != nil {
		return err
	}
	if book.Status == domain.BookOnLoan {
		book.Status = domain.BookOverdue
		book.UpdatedAt = now
		if err := tx.PutBook(book); err != nil {
			return err
		}
	}

	if err := tx.AppendAudit(&domain.AuditEntry{
		Action:    domain.AuditLoanOverdue,
		Actor:     sweepActor,
		EntityID:  loan.ID,
		BookID:    loan.BookID,
		Old:       domain.StatusSnapshot{LoanStatus: domain.LoanOpen, BookStatus: oldBook},
		New:       domain.StatusSnapshot{LoanStatus: domain.LoanOverdue, BookStatus: book.Status},
		Timestamp: now,
	}); err != nil {
		return err
	}

	if err := s.recomputeRisk(tx, loan.BorrowerID, now); err != nil {
		return err
	}

	*out = &Transition{
		LoanID:      loan.ID,
		BookID:      loan.BookID,
		Old:         domain.LoanOpen,
		New:         domain.LoanOverdue,
		BookStatus:  book.Status,
		bookChanged: book.Status != oldBook,
	}
	return nil
}

// markLost writes off a loan that stayed overdue past the lost threshold.
func (s *SweepService) markLost(tx *store.Tx, loan *domain.Loan, now time.Time, out **Transition) error {
	book, err := tx.GetBook(loan.BookID)
	if err != nil {
		return err
	}

	oldBook := book.Status
	loan.Status = domain.LoanLost
	loan.UpdatedAt = now
	if err := tx.PutLoan(loan); err != nil {
		return err
	}
	if book.Status.CanTransition(domain.BookLost) {
		book.Status = domain.BookLost
		book.UpdatedAt = now
		if err := tx.PutBook(book); err != nil {
			return err
		}
	}

	if err := tx.AppendAudit(&domain.AuditEntry{
		Action:    domain.AuditLoanLost,
		Actor:     sweepActor,
		EntityID:  loan.ID,
		BookID:    loan.BookID,
		Old:       domain.StatusSnapshot{LoanStatus: domain.LoanOverdue, BookStatus: oldBook},
		New:       domain.StatusSnapshot{LoanStatus: domain.LoanLost, BookStatus: book.Status},
		Timestamp: now,
	}); err != nil {
		return err
	}

	if err := s.recomputeRisk(tx, loan.BorrowerID, now); err != nil {
		return err
	}

	*out = &Transition{
		LoanID:      loan.ID,
		BookID:      loan.BookID,
		Old:         domain.LoanOverdue,
		New:         domain.LoanLost,
		BookStatus:  book.Status,
		bookChanged: book.Status != oldBook,
	}
	return nil
}

// RecomputeBorrowers re-derives risk state for every borrower. The sweep
// runs this after the loan pass so inactivity flips even for borrowers
// with no loan activity to trigger a recomputation.
func (s *SweepService) RecomputeBorrowers(ctx context.Context) (int, error) {
	borrowers, err := s.store.ListBorrowers(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()

	changed := 0
	for _, b := range borrowers {
		var didChange bool
		err := s.store.Update(ctx, func(tx *store.Tx) error {
			didChange = false
			before, err := tx.GetBorrower(b.ID)
			if err != nil {
				return err
			}
			oldStatus := before.Status

			after, recomputed, err := s.risk.Recompute(tx, b.ID, now)
			if err != nil {
				return err
			}
			if !recomputed {
				return nil
			}
			didChange = true
			if after.Status == oldStatus {
				return nil
			}
			return tx.AppendAudit(&domain.AuditEntry{
				Action:    domain.AuditBorrowerStatus,
				Actor:     sweepActor,
				EntityID:  b.ID,
				Old:       domain.StatusSnapshot{BorrowerStatus: oldStatus},
				New:       domain.StatusSnapshot{BorrowerStatus: after.Status},
				Timestamp: now,
			})
		})
		if err != nil {
			s.logger.Warn("recompute borrower failed", "borrower_id", b.ID, "error", err)
			continue
		}
		if didChange {
			changed++
		}
	}
	return changed, nil
}

func (s *SweepService) recomputeRisk(tx *store.Tx, borrowerID string, now time.Time) error {
	before, err := tx.GetBorrower(borrowerID)
	if err != nil {
		return err
	}
	oldStatus := before.Status

	after, changed, err := s.risk.Recompute(tx, borrowerID, now)
	if err != nil {
		return err
	}
	if !changed || after.Status == oldStatus {
		return nil
	}
	return tx.AppendAudit(&domain.AuditEntry{
		Action:    domain.AuditBorrowerStatus,
		Actor:     sweepActor,
		EntityID:  borrowerID,
		Old:       domain.StatusSnapshot{BorrowerStatus: oldStatus},
		New:       domain.StatusSnapshot{BorrowerStatus: after.Status},
		Timestamp: now,
	})
}
