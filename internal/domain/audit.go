package domain

import "time"

// AuditAction names a state-changing engine operation.
type AuditAction string

// Audit actions.
const (
	AuditLoanCreated      AuditAction = "loan.created"
	AuditLoanReturned     AuditAction = "loan.returned"
	AuditLoanOverdue      AuditAction = "loan.overdue"
	AuditLoanLost         AuditAction = "loan.lost"
	AuditIncidentReported AuditAction = "incident.reported"
	AuditBookCreated      AuditAction = "book.created"
	AuditBookResolved     AuditAction = "book.resolved"
	AuditBookRemoved      AuditAction = "book.removed"
	AuditBorrowerCreated  AuditAction = "borrower.created"
	AuditBorrowerStatus   AuditAction = "borrower.status"
	AuditWaitlistEnqueued AuditAction = "waitlist.enqueued"
	AuditWaitlistCanceled AuditAction = "waitlist.canceled"
	AuditWaitlistServed   AuditAction = "waitlist.served"
)

// StatusSnapshot captures an entity's status before or after a transition.
// Audit entries carry snapshots rather than references so the trail stays
// meaningful after the entity changes again.
type StatusSnapshot struct {
	BookStatus     BookStatus       `json:"book_status,omitempty"`
	LoanStatus     LoanStatus       `json:"loan_status,omitempty"`
	BorrowerStatus MembershipStatus `json:"borrower_status,omitempty"`
}

// AuditEntry is an immutable record of one state-changing action.
// Entries are append-only: there is no update or delete operation anywhere
// in the store interface.
type AuditEntry struct {
	// Seq is a monotonically increasing sequence number assigned at append
	// time. Gaps are possible (aborted transactions burn numbers); order is
	// what matters.
	Seq uint64 `json:"seq"`

	Action   AuditAction `json:"action"`
	Actor    string      `json:"actor"`
	EntityID string      `json:"entity_id"`
	// BookID is set for every entry touching a book, so per-book history
	// can be queried even when EntityID refers to a loan or incident.
	BookID    string         `json:"book_id,omitempty"`
	Old       StatusSnapshot `json:"old"`
	New       StatusSnapshot `json:"new"`
	Timestamp time.Time      `json:"timestamp"`
}
