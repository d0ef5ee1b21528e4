package store

import (
	"context"
	"sort"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

// GetBorrower retrieves a borrower by ID.
func (s *Store) GetBorrower(ctx context.Context, id string) (*domain.Borrower, error) {
	var b *domain.Borrower
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		b, err = tx.GetBorrower(id)
		return err
	})
	return b, err
}

// ListBorrowers returns all borrowers ordered by name.
func (s *Store) ListBorrowers(ctx context.Context) ([]*domain.Borrower, error) {
	var borrowers []*domain.Borrower
	err := s.View(ctx, func(tx *Tx) error {
		return tx.scan([]byte(borrowerPrefix), func(val []byte) error {
			var b domain.Borrower
			if err := unmarshal(val, &b); err != nil {
				return err
			}
			borrowers = append(borrowers, &b)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(borrowers, func(i, j int) bool {
		if borrowers[i].Name == borrowers[j].Name {
			return borrowers[i].ID < borrowers[j].ID
		}
		return borrowers[i].Name < borrowers[j].Name
	})
	return borrowers, nil
}
