package store

import (
	"context"
	"sort"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

// GetLoan retrieves a loan by ID.
func (s *Store) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		loan, err = tx.GetLoan(id)
		return err
	})
	return loan, err
}

// ActiveLoans returns every open/overdue loan, ordered by loan ID for a
// stable sweep order. The sweeper uses this as its work list; each loan is
// then re-read inside its own transaction, so a stale snapshot here only
// costs a no-op pass over an already-transitioned loan.
func (s *Store) ActiveLoans(ctx context.Context) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	err := s.View(ctx, func(tx *Tx) error {
		ids, err := tx.scanRefs([]byte(loanActivePrefix))
		if err != nil {
			return err
		}
		for _, id := range ids {
			loan, err := tx.GetLoan(id)
			if err != nil {
				return err
			}
			loans = append(loans, loan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

// LoansByBorrower returns all loans ever held by a borrower.
func (s *Store) LoansByBorrower(ctx context.Context, borrowerID string) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		loans, err = tx.LoansByBorrower(borrowerID)
		return err
	})
	return loans, err
}
