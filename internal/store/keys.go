package store

import "fmt"

// Key prefixes. Entities are stored as JSON under prefix+ID; secondary
// indexes store the target ID as the value.
const (
	bookPrefix     = "book:"
	borrowerPrefix = "borrower:"
	loanPrefix     = "loan:"
	incidentPrefix = "incident:"
	waitlistPrefix = "waitlist:"
	auditPrefix    = "audit:"

	// Secondary indexes live under idx: so entity prefix scans never see
	// them.

	// loanActivePrefix maps a book ID to its single open/overdue loan ID.
	// The key exists exactly while such a loan exists, which is how the
	// one-active-loan-per-book invariant is enforced at the storage level.
	loanActivePrefix = "idx:loan:active:"

	// loanByBorrowerPrefix indexes loan IDs per borrower for risk scoring.
	loanByBorrowerPrefix = "idx:loan:borrower:"

	// incidentByBorrowerPrefix indexes incident IDs per borrower.
	incidentByBorrowerPrefix = "idx:incident:borrower:"

	// incidentByBookPrefix indexes incident IDs per book.
	incidentByBookPrefix = "idx:incident:book:"

	// waitlistByBorrowerPrefix guards against duplicate waitlist entries:
	// idx:waitlist:borrower:<bookID>:<borrowerID> -> entryID.
	waitlistByBorrowerPrefix = "idx:waitlist:borrower:"

	// auditSeqKey is the Badger sequence used for audit numbering. It lives
	// outside the audit: prefix so audit scans never see it.
	auditSeqKey = "seq:audit"
)

// auditKey formats an audit sequence number as a fixed-width key so
// lexicographic key order equals numeric sequence order.
func auditKey(seq uint64) []byte {
	return fmt.Appendf(nil, "%s%020d", auditPrefix, seq)
}

// waitlistKey builds the primary key for a waitlist entry. Entries are
// grouped per book so a prefix scan yields one book's queue.
func waitlistKey(bookID, entryID string) []byte {
	return []byte(waitlistPrefix + bookID + ":" + entryID)
}

// waitlistBorrowerKey builds the duplicate-guard index key.
func waitlistBorrowerKey(bookID, borrowerID string) []byte {
	return []byte(waitlistByBorrowerPrefix + bookID + ":" + borrowerID)
}
