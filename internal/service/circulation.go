// Package service contains the business logic for the Bookwarden lending engine.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/domain"
	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
	"github.com/bookwarden/bookwarden-server/internal/id"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

// CirculationService is the lending state machine. It is the only writer of
// book and loan statuses: every mutation runs inside one store transaction
// covering the entity writes, the risk recomputation, and the audit append,
// so partially-applied events cannot be observed.
type CirculationService struct {
	store    *store.Store
	risk     *RiskScorer
	notifier Notifier
	logger   *slog.Logger
	cfg      config.CirculationConfig

	// now is replaceable in tests.
	now func() time.Time
}

// NewCirculationService creates the circulation engine.
func NewCirculationService(s *store.Store, risk *RiskScorer, notifier Notifier, cfg config.CirculationConfig, logger *slog.Logger) *CirculationService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &CirculationService{
		store:    s,
		risk:     risk,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// servedWaitlist carries a served waitlist entry out of a transaction so
// the notification fires only after the commit succeeded.
type servedWaitlist struct {
	entry *domain.WaitlistEntry
	loan  *domain.Loan
}

// CreateLoan opens a loan for a borrower on an available book.
//
// Fails with Validation if the return date is not in the future, Forbidden
// if the borrower is suspended (checked before availability, so suspension
// always wins), and Conflict if the book is not available - including when
// a concurrent CreateLoan got there first.
func (s *CirculationService) CreateLoan(ctx context.Context, actor, bookID, borrowerID string, expectedReturn time.Time) (*domain.Loan, error) {
	now := s.now()
	if !expectedReturn.After(now) {
		return nil, domainerrors.Validation("expected return date must be in the future")
	}

	var loan *domain.Loan
	var book *domain.Book
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		book, err = tx.GetBook(bookID)
		if err != nil {
			return err
		}
		borrower, err := tx.GetBorrower(borrowerID)
		if err != nil {
			return err
		}

		if !borrower.CanLoan() {
			return domainerrors.Forbiddenf("borrower %s is suspended", borrowerID)
		}
		if !book.Status.Loanable() {
			return domainerrors.Conflictf("book %s is not available (status %s)", bookID, book.Status)
		}

		loan, err = s.openLoan(tx, book, borrower, actor, now, expectedReturn)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.store.IndexBook(ctx, book)
	s.notifier.LoanCreated(loan)
	s.logger.Info("loan created",
		"loan_id", loan.ID,
		"book_id", bookID,
		"borrower_id", borrowerID,
		"due", loan.ExpectedReturnDate,
	)
	return loan, nil
}

// ReturnBook closes the open/overdue loan identified by a loan ID or a
// book ID. Returning an already-closed loan fails with InvalidTransition
// and changes nothing.
func (s *CirculationService) ReturnBook(ctx context.Context, actor, ref string) (*domain.Loan, error) {
	now := s.now()

	var loan *domain.Loan
	var book *domain.Book
	var served *servedWaitlist
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		loan, err = s.resolveLoan(tx, ref)
		if err != nil {
			return err
		}
		if !loan.Status.CanTransition(domain.LoanReturned) {
			return domainerrors.InvalidTransitionf("loan %s is already %s", loan.ID, loan.Status)
		}

		oldLoanStatus := loan.Status
		ret := now
		loan.Status = domain.LoanReturned
		loan.ActualReturnDate = &ret
		loan.UpdatedAt = now
		if err := tx.PutLoan(loan); err != nil {
			return err
		}

		book, err = tx.GetBook(loan.BookID)
		if err != nil {
			return err
		}

		oldBookStatus := book.Status
		if book.Status == domain.BookOnLoan || book.Status == domain.BookOverdue {
			// A damaged/lost book stays in its incident state until an
			// administrative resolve, even when physically returned.
			served, err = s.makeAvailable(tx, book, actor, now)
			if err != nil {
				return err
			}
		}

		if err := tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditLoanReturned,
			Actor:     actor,
			EntityID:  loan.ID,
			BookID:    book.ID,
			Old:       domain.StatusSnapshot{LoanStatus: oldLoanStatus, BookStatus: oldBookStatus},
			New:       domain.StatusSnapshot{LoanStatus: domain.LoanReturned, BookStatus: book.Status},
			Timestamp: now,
		}); err != nil {
			return err
		}

		return s.recomputeRisk(tx, loan.BorrowerID, actor, now)
	})
	if err != nil {
		return nil, err
	}

	s.store.IndexBook(ctx, book)
	s.notifier.LoanReturned(loan)
	s.notifyServed(served)
	s.logger.Info("book returned", "loan_id", loan.ID, "book_id", loan.BookID)
	return loan, nil
}

// ReportIncident records an adverse event for a book and applies its status
// consequences: damaged maps the book to Damaged, lost/missing to Lost, and
// a lost/missing incident writes off the active loan as Lost too.
//
// Incidents are valid with or without an active loan; BorrowerID may be
// empty for "missing from shelf" reports.
func (s *CirculationService) ReportIncident(ctx context.Context, actor, bookID string, typ domain.IncidentType, notes, borrowerID string) (*domain.Incident, error) {
	if !typ.Valid() {
		return nil, domainerrors.Validationf("unknown incident type %q", typ)
	}
	now := s.now()

	var incident *domain.Incident
	var book *domain.Book
	var bookChanged bool
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		bookChanged = false
		var err error
		book, err = tx.GetBook(bookID)
		if err != nil {
			return err
		}
		if book.Status == domain.BookRemoved {
			return domainerrors.InvalidTransitionf("book %s is removed from circulation", bookID)
		}

		activeLoan, err := tx.ActiveLoanForBook(bookID)
		if err != nil {
			return err
		}

		// Attribute the incident to the holder of the book when the
		// caller did not name anyone.
		if borrowerID == "" && activeLoan != nil {
			borrowerID = activeLoan.BorrowerID
		}
		if borrowerID != "" {
			if _, err := tx.GetBorrower(borrowerID); err != nil {
				return err
			}
		}

		incidentID, err := id.Generate("inc")
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "generate incident ID")
		}
		incident = &domain.Incident{
			ID:           incidentID,
			BookID:       bookID,
			BorrowerID:   borrowerID,
			Type:         typ,
			Notes:        notes,
			Compensation: domain.CompensationPending,
			ReportedAt:   now,
		}
		if err := tx.PutIncident(incident); err != nil {
			return err
		}

		oldSnap := domain.StatusSnapshot{BookStatus: book.Status}
		newSnap := domain.StatusSnapshot{BookStatus: book.Status}

		target := typ.BookStatus()
		if book.Status != target && book.Status.CanTransition(target) {
			book.Status = target
			book.UpdatedAt = now
			if err := tx.PutBook(book); err != nil {
				return err
			}
			newSnap.BookStatus = target
			bookChanged = true
		}

		if target == domain.BookLost && activeLoan != nil && activeLoan.Status.CanTransition(domain.LoanLost) {
			oldSnap.LoanStatus = activeLoan.Status
			activeLoan.Status = domain.LoanLost
			activeLoan.UpdatedAt = now
			if err := tx.PutLoan(activeLoan); err != nil {
				return err
			}
			newSnap.LoanStatus = domain.LoanLost
		}

		if err := tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditIncidentReported,
			Actor:     actor,
			EntityID:  incident.ID,
			BookID:    bookID,
			Old:       oldSnap,
			New:       newSnap,
			Timestamp: now,
		}); err != nil {
			return err
		}

		if borrowerID != "" {
			return s.recomputeRisk(tx, borrowerID, actor, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.store.IndexBook(ctx, book)
	if bookChanged {
		s.notifier.BookStatusChanged(book.ID, book.Status)
	}
	s.logger.Info("incident reported",
		"incident_id", incident.ID,
		"book_id", bookID,
		"type", typ,
	)
	return incident, nil
}

// ResolveBook is the administrative edge Damaged/Lost -> Available: the
// book was repaired or found and goes back into circulation. The waitlist
// is consulted like on any other transition to Available.
func (s *CirculationService) ResolveBook(ctx context.Context, actor, bookID string) (*domain.Book, error) {
	now := s.now()

	var book *domain.Book
	var served *servedWaitlist
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		book, err = tx.GetBook(bookID)
		if err != nil {
			return err
		}
		if book.Status != domain.BookDamaged && book.Status != domain.BookLost {
			return domainerrors.InvalidTransitionf("book %s is %s, not damaged or lost", bookID, book.Status)
		}

		old := book.Status
		served, err = s.makeAvailable(tx, book, actor, now)
		if err != nil {
			return err
		}

		return tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditBookResolved,
			Actor:     actor,
			EntityID:  bookID,
			BookID:    bookID,
			Old:       domain.StatusSnapshot{BookStatus: old},
			New:       domain.StatusSnapshot{BookStatus: book.Status},
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.store.IndexBook(ctx, book)
	s.notifier.BookStatusChanged(book.ID, book.Status)
	s.notifyServed(served)
	s.logger.Info("book resolved", "book_id", bookID, "status", book.Status)
	return book, nil
}

// RemoveBook withdraws a book from circulation permanently. An active loan
// is written off as Lost and the whole waitlist is dropped.
func (s *CirculationService) RemoveBook(ctx context.Context, actor, bookID string) error {
	now := s.now()

	err := s.store.Update(ctx, func(tx *store.Tx) error {
		book, err := tx.GetBook(bookID)
		if err != nil {
			return err
		}
		if !book.Status.CanTransition(domain.BookRemoved) {
			return domainerrors.InvalidTransitionf("book %s is already removed", bookID)
		}

		oldSnap := domain.StatusSnapshot{BookStatus: book.Status}
		newSnap := domain.StatusSnapshot{BookStatus: domain.BookRemoved}

		activeLoan, err := tx.ActiveLoanForBook(bookID)
		if err != nil {
			return err
		}
		if activeLoan != nil {
			oldSnap.LoanStatus = activeLoan.Status
			activeLoan.Status = domain.LoanLost
			activeLoan.UpdatedAt = now
			if err := tx.PutLoan(activeLoan); err != nil {
				return err
			}
			newSnap.LoanStatus = domain.LoanLost
		}

		entries, err := tx.WaitlistForBook(bookID)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := tx.DeleteWaitlistEntry(entry); err != nil {
				return err
			}
		}

		book.Status = domain.BookRemoved
		book.UpdatedAt = now
		if err := tx.PutBook(book); err != nil {
			return err
		}

		if err := tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditBookRemoved,
			Actor:     actor,
			EntityID:  bookID,
			BookID:    bookID,
			Old:       oldSnap,
			New:       newSnap,
			Timestamp: now,
		}); err != nil {
			return err
		}

		if activeLoan != nil {
			return s.recomputeRisk(tx, activeLoan.BorrowerID, actor, now)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.store.DeleteFromIndex(ctx, bookID); err != nil {
		s.logger.Warn("remove book from search index", "book_id", bookID, "error", err)
	}
	s.notifier.BookStatusChanged(bookID, domain.BookRemoved)
	s.logger.Info("book removed", "book_id", bookID)
	return nil
}

// GetLoan retrieves a loan by ID.
func (s *CirculationService) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	return s.store.GetLoan(ctx, loanID)
}

// ActiveLoans returns every open or overdue loan.
func (s *CirculationService) ActiveLoans(ctx context.Context) ([]*domain.Loan, error) {
	return s.store.ActiveLoans(ctx)
}

// Now returns the service clock, so read paths derive overdue days from
// the same time source writes use.
func (s *CirculationService) Now() time.Time {
	return s.now()
}

// resolveLoan finds the loan a return refers to: a loan ID directly, or a
// book ID from which the single active loan is looked up.
func (s *CirculationService) resolveLoan(tx *store.Tx, ref string) (*domain.Loan, error) {
	loan, err := tx.GetLoan(ref)
	if err == nil {
		return loan, nil
	}
	if !domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	book, err := tx.GetBook(ref)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFoundf("no loan or book with id %s", ref)
		}
		return nil, err
	}
	loan, err = tx.ActiveLoanForBook(book.ID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, domainerrors.InvalidTransitionf("book %s has no open loan", book.ID)
	}
	return loan, nil
}

// openLoan writes a new open loan and flips the book to OnLoan. Callers
// have already validated preconditions; this is also the path the waitlist
// uses, where the Available-only check is deliberately bypassed because the
// hand-off happens inside one transaction.
func (s *CirculationService) openLoan(tx *store.Tx, book *domain.Book, borrower *domain.Borrower, actor string, now, expectedReturn time.Time) (*domain.Loan, error) {
	loanID, err := id.Generate("loan")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate loan ID")
	}

	loan := &domain.Loan{
		ID:                 loanID,
		BookID:             book.ID,
		BorrowerID:         borrower.ID,
		Status:             domain.LoanOpen,
		LoanDate:           now,
		ExpectedReturnDate: expectedReturn,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := tx.PutLoan(loan); err != nil {
		return nil, err
	}

	oldStatus := book.Status
	book.Status = domain.BookOnLoan
	book.UpdatedAt = now
	if err := tx.PutBook(book); err != nil {
		return nil, err
	}

	if err := tx.AppendAudit(&domain.AuditEntry{
		Action:    domain.AuditLoanCreated,
		Actor:     actor,
		EntityID:  loan.ID,
		BookID:    book.ID,
		Old:       domain.StatusSnapshot{BookStatus: oldStatus},
		New:       domain.StatusSnapshot{BookStatus: domain.BookOnLoan, LoanStatus: domain.LoanOpen},
		Timestamp: now,
	}); err != nil {
		return nil, err
	}

	if err := s.recomputeRisk(tx, borrower.ID, actor, now); err != nil {
		return nil, err
	}
	return loan, nil
}

// makeAvailable handles every transition that frees a book: if the
// waitlist is non-empty the head entry immediately gets the book (the book
// never actually rests on the shelf), otherwise the book goes to Available.
// Suspended borrowers waiting in line are dropped and the next entry tried.
func (s *CirculationService) makeAvailable(tx *store.Tx, book *domain.Book, actor string, now time.Time) (*servedWaitlist, error) {
	for {
		head, err := tx.WaitlistHead(book.ID)
		if err != nil {
			return nil, err
		}
		if head == nil {
			book.Status = domain.BookAvailable
			book.UpdatedAt = now
			return nil, tx.PutBook(book)
		}

		if err := tx.DeleteWaitlistEntry(head); err != nil {
			return nil, err
		}

		borrower, err := tx.GetBorrower(head.BorrowerID)
		if err != nil {
			return nil, err
		}
		if !borrower.CanLoan() {
			// A suspended borrower cannot take the book; their claim
			// lapses and the next in line is tried.
			if err := tx.AppendAudit(&domain.AuditEntry{
				Action:    domain.AuditWaitlistCanceled,
				Actor:     actor,
				EntityID:  head.ID,
				BookID:    book.ID,
				Timestamp: now,
			}); err != nil {
				return nil, err
			}
			continue
		}

		head.Notified = true
		loan, err := s.openLoan(tx, book, borrower, actor, now, now.Add(s.cfg.LoanPeriod))
		if err != nil {
			return nil, err
		}

		if err := tx.AppendAudit(&domain.AuditEntry{
			Action:    domain.AuditWaitlistServed,
			Actor:     actor,
			EntityID:  head.ID,
			BookID:    book.ID,
			New:       domain.StatusSnapshot{LoanStatus: domain.LoanOpen, BookStatus: domain.BookOnLoan},
			Timestamp: now,
		}); err != nil {
			return nil, err
		}

		return &servedWaitlist{entry: head, loan: loan}, nil
	}
}

// recomputeRisk re-derives the borrower's risk state and audits a status
// change if one happened.
func (s *CirculationService) recomputeRisk(tx *store.Tx, borrowerID, actor string, now time.Time) error {
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
		Actor:     actor,
		EntityID:  borrowerID,
		Old:       domain.StatusSnapshot{BorrowerStatus: oldStatus},
		New:       domain.StatusSnapshot{BorrowerStatus: after.Status},
		Timestamp: now,
	})
}

// notifyServed fires the waitlist notification after a successful commit.
func (s *CirculationService) notifyServed(served *servedWaitlist) {
	if served == nil {
		return
	}
	s.notifier.LoanCreated(served.loan)
	s.notifier.WaitlistServed(served.entry, served.loan)
	s.logger.Info("waitlist served",
		"entry_id", served.entry.ID,
		"book_id", served.entry.BookID,
		"borrower_id", served.entry.BorrowerID,
		"loan_id", served.loan.ID,
	)
}
