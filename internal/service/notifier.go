package service

import "github.com/bookwarden/bookwarden-server/internal/domain"

// Notifier is told about circulation changes after they committed. Delivery
// beyond this callback (SSE, email, push) is somebody else's problem; the
// engine only announces. Implementations must not block.
type Notifier interface {
	LoanCreated(loan *domain.Loan)
	LoanReturned(loan *domain.Loan)
	WaitlistServed(entry *domain.WaitlistEntry, loan *domain.Loan)
	BookStatusChanged(bookID string, status domain.BookStatus)
}

// NoopNotifier is a no-op implementation for testing.
type NoopNotifier struct{}

// LoanCreated is a no-op.
func (NoopNotifier) LoanCreated(*domain.Loan) {}

// LoanReturned is a no-op.
func (NoopNotifier) LoanReturned(*domain.Loan) {}

// WaitlistServed is a no-op.
func (NoopNotifier) WaitlistServed(*domain.WaitlistEntry, *domain.Loan) {}

// BookStatusChanged is a no-op.
func (NoopNotifier) BookStatusChanged(string, domain.BookStatus) {}
