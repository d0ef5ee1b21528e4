// Package main provides a read-only inspection tool for the Bookwarden
// database: entity counts, status breakdowns, and the tail of the audit
// ledger.
//
// Usage:
//
//	DATA_PATH=~/Bookwarden/data go run ./cmd/dbinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookwarden/bookwarden-server/internal/domain"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Bookwarden/data")
	}
	dbPath := filepath.Join(dataPath, "db")

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	bookStatuses := map[domain.BookStatus]int{}
	loanStatuses := map[domain.LoanStatus]int{}
	borrowerStatuses := map[domain.MembershipStatus]int{}
	var incidents, waitlistEntries, auditEntries int
	var lastAudit []*domain.AuditEntry

	err = db.View(func(txn *badger.Txn) error {
		if err := scan(txn, "book:", func(val []byte) error {
			var book domain.Book
			if err := json.Unmarshal(val, &book); err != nil {
				return err
			}
			bookStatuses[book.Status]++
			return nil
		}); err != nil {
			return err
		}

		if err := scan(txn, "loan:", func(val []byte) error {
			var loan domain.Loan
			if err := json.Unmarshal(val, &loan); err != nil {
				return err
			}
			loanStatuses[loan.Status]++
			return nil
		}); err != nil {
			return err
		}

		if err := scan(txn, "borrower:", func(val []byte) error {
			var borrower domain.Borrower
			if err := json.Unmarshal(val, &borrower); err != nil {
				return err
			}
			borrowerStatuses[borrower.Status]++
			return nil
		}); err != nil {
			return err
		}

		if err := scan(txn, "incident:", func([]byte) error {
			incidents++
			return nil
		}); err != nil {
			return err
		}

		if err := scan(txn, "waitlist:", func([]byte) error {
			waitlistEntries++
			return nil
		}); err != nil {
			return err
		}

		return scan(txn, "audit:", func(val []byte) error {
			var entry domain.AuditEntry
			if err := json.Unmarshal(val, &entry); err != nil {
				return err
			}
			auditEntries++
			lastAudit = append(lastAudit, &entry)
			if len(lastAudit) > 10 {
				lastAudit = lastAudit[1:]
			}
			return nil
		})
	})
	if err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}

	printCounts("Books", bookStatuses)
	printCounts("Loans", loanStatuses)
	printCounts("Borrowers", borrowerStatuses)
	fmt.Printf("Incidents: %d\n", incidents)
	fmt.Printf("Waitlist entries: %d\n", waitlistEntries)
	fmt.Printf("Audit entries: %d\n", auditEntries)

	if len(lastAudit) > 0 {
		fmt.Println()
		fmt.Println("Last audit entries:")
		for _, e := range lastAudit {
			fmt.Printf("  [%d] %s %s %s -> %s\n",
				e.Seq, e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Actor, e.EntityID)
		}
	}
}

// printCounts prints a status breakdown for one entity kind.
func printCounts[K ~string](label string, counts map[K]int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Printf("%s: %d\n", label, total)

	statuses := slices.Sorted(maps.Keys(counts))
	for _, status := range statuses {
		fmt.Printf("  %s: %d\n", status, counts[status])
	}
}

// scan iterates the values under a key prefix.
func scan(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
