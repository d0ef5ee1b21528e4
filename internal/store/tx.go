package store

import (
	"encoding/json/v2"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookwarden/bookwarden-server/internal/domain"
	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
)

// Tx is a view over one Badger transaction with typed entity accessors.
// A Tx is only valid for the duration of the Update/View closure it was
// handed to.
type Tx struct {
	txn   *badger.Txn
	store *Store
}

// get unmarshals the value at key into out. Returns ErrNotFound if the key
// does not exist.
func (t *Tx) get(key []byte, out any) error {
	item, err := t.txn.Get(key)
	if domainerrors.Is(err, badger.ErrKeyNotFound) {
		return domainerrors.ErrNotFound
	}
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "get key")
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "unmarshal entity")
		}
		return nil
	})
}

// put marshals v and writes it at key.
func (t *Tx) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "marshal entity")
	}
	if err := t.txn.Set(key, data); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "set key")
	}
	return nil
}

// getRef reads an index key whose value is a target entity ID.
// Returns "" (no error) when the index key does not exist.
func (t *Tx) getRef(key []byte) (string, error) {
	item, err := t.txn.Get(key)
	if domainerrors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "get index key")
	}
	var id string
	err = item.Value(func(val []byte) error {
		// Index values are JSON-encoded strings.
		if err := json.Unmarshal(val, &id); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "unmarshal index value")
		}
		return nil
	})
	return id, err
}

// === Books ===

// GetBook retrieves a book by ID.
func (t *Tx) GetBook(id string) (*domain.Book, error) {
	var book domain.Book
	if err := t.get([]byte(bookPrefix+id), &book); err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFoundf("book %s not found", id)
		}
		return nil, err
	}
	return &book, nil
}

// PutBook writes a book.
func (t *Tx) PutBook(book *domain.Book) error {
	return t.put([]byte(bookPrefix+book.ID), book)
}

// === Borrowers ===

// GetBorrower retrieves a borrower by ID.
func (t *Tx) GetBorrower(id string) (*domain.Borrower, error) {
	var b domain.Borrower
	if err := t.get([]byte(borrowerPrefix+id), &b); err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFoundf("borrower %s not found", id)
		}
		return nil, err
	}
	return &b, nil
}

// PutBorrower writes a borrower.
func (t *Tx) PutBorrower(b *domain.Borrower) error {
	return t.put([]byte(borrowerPrefix+b.ID), b)
}

// === Loans ===

// GetLoan retrieves a loan by ID.
func (t *Tx) GetLoan(id string) (*domain.Loan, error) {
	var loan domain.Loan
	if err := t.get([]byte(loanPrefix+id), &loan); err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFoundf("loan %s not found", id)
		}
		return nil, err
	}
	return &loan, nil
}

// PutLoan writes a loan and maintains the active-loan and per-borrower
// indexes. The active index entry exists exactly while the loan holds the
// book, which is what makes "at most one open/overdue loan per book"
// checkable with a single read.
func (t *Tx) PutLoan(loan *domain.Loan) error {
	if err := t.put([]byte(loanPrefix+loan.ID), loan); err != nil {
		return err
	}
	if err := t.put([]byte(loanByBorrowerPrefix+loan.BorrowerID+":"+loan.ID), loan.ID); err != nil {
		return err
	}

	activeKey := []byte(loanActivePrefix + loan.BookID)
	if loan.Status.Active() {
		return t.put(activeKey, loan.ID)
	}
	if err := t.txn.Delete(activeKey); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "clear active loan index")
	}
	return nil
}

// ActiveLoanForBook returns the book's single open/overdue loan, or nil if
// the book has none.
func (t *Tx) ActiveLoanForBook(bookID string) (*domain.Loan, error) {
	loanID, err := t.getRef([]byte(loanActivePrefix + bookID))
	if err != nil {
		return nil, err
	}
	if loanID == "" {
		return nil, nil
	}
	return t.GetLoan(loanID)
}

// LoansByBorrower returns all loans ever held by a borrower.
func (t *Tx) LoansByBorrower(borrowerID string) ([]*domain.Loan, error) {
	ids, err := t.scanRefs([]byte(loanByBorrowerPrefix + borrowerID + ":"))
	if err != nil {
		return nil, err
	}
	loans := make([]*domain.Loan, 0, len(ids))
	for _, id := range ids {
		loan, err := t.GetLoan(id)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

// === Incidents ===

// PutIncident writes an incident and its borrower/book indexes. There is
// deliberately no delete: incidents are a permanent historical record.
func (t *Tx) PutIncident(inc *domain.Incident) error {
	if err := t.put([]byte(incidentPrefix+inc.ID), inc); err != nil {
		return err
	}
	if err := t.put([]byte(incidentByBookPrefix+inc.BookID+":"+inc.ID), inc.ID); err != nil {
		return err
	}
	if inc.BorrowerID != "" {
		return t.put([]byte(incidentByBorrowerPrefix+inc.BorrowerID+":"+inc.ID), inc.ID)
	}
	return nil
}

// GetIncident retrieves an incident by ID.
func (t *Tx) GetIncident(id string) (*domain.Incident, error) {
	var inc domain.Incident
	if err := t.get([]byte(incidentPrefix+id), &inc); err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFoundf("incident %s not found", id)
		}
		return nil, err
	}
	return &inc, nil
}

// IncidentsByBorrower returns all incidents attributed to a borrower.
func (t *Tx) IncidentsByBorrower(borrowerID string) ([]*domain.Incident, error) {
	ids, err := t.scanRefs([]byte(incidentByBorrowerPrefix + borrowerID + ":"))
	if err != nil {
		return nil, err
	}
	incidents := make([]*domain.Incident, 0, len(ids))
	for _, id := range ids {
		inc, err := t.GetIncident(id)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, nil
}

// === Audit ===

// AppendAudit assigns the next sequence number and writes the entry.
// It participates in the surrounding transaction: if the engine operation
// aborts, the entry is never stored, and if the append fails the whole
// operation rolls back - state never changes unaudited.
func (t *Tx) AppendAudit(entry *domain.AuditEntry) error {
	seq, err := t.store.nextAuditSeq()
	if err != nil {
		return err
	}
	entry.Seq = seq
	return t.put(auditKey(seq), entry)
}

// scan iterates raw values under a key prefix.
func (t *Tx) scan(prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// unmarshal decodes a stored entity value.
func unmarshal(val []byte, out any) error {
	if err := json.Unmarshal(val, out); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "unmarshal entity")
	}
	return nil
}

// scanRefs collects index values (entity IDs) under a key prefix.
func (t *Tx) scanRefs(prefix []byte) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			// Index values are JSON-encoded strings.
			var id string
			if err := json.Unmarshal(val, &id); err != nil {
				return domainerrors.Wrap(err, domainerrors.CodeInternal, "unmarshal index value")
			}
			ids = append(ids, id)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
