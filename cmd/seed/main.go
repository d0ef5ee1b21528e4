// Package main provides a tool to seed the database with test circulation data.
//
// It creates a small catalog, a handful of borrowers, and a mix of open,
// returned, and past-due loans so sweep, risk, and search behavior can be
// exercised against realistic state.
//
// Usage:
//
//	DATA_PATH=~/Bookwarden/data go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/service"
	"github.com/bookwarden/bookwarden-server/internal/store"
)

const seedActor = "seed"

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Bookwarden/data")
	}
	dbPath := filepath.Join(dataPath, "db")

	fmt.Printf("Opening database at: %s\n", dbPath)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := store.New(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	risk := service.NewRiskScorer(config.RiskConfig{
		SuspendOverdueCount: 3,
		SuspendWindow:       180 * 24 * time.Hour,
		InactivityWindow:    365 * 24 * time.Hour,
	})
	circulation := service.NewCirculationService(s, risk, nil,
		config.CirculationConfig{LoanPeriod: 14 * 24 * time.Hour}, logger)
	catalog := service.NewCatalogService(s, nil, config.MetadataConfig{}, logger)
	waitlist := service.NewWaitlistService(s, logger)

	books := []struct {
		title, author, isbn string
	}{
		{"The Dispossessed", "Ursula K. Le Guin", "9780060512750"},
		{"The Left Hand of Darkness", "Ursula K. Le Guin", "9780441478125"},
		{"Neuromancer", "William Gibson", "9780441569595"},
		{"Snow Crash", "Neal Stephenson", "9780553380958"},
		{"A Fire Upon the Deep", "Vernor Vinge", "9780812515282"},
		{"Hyperion", "Dan Simmons", "9780553283686"},
	}

	bookIDs := make([]string, 0, len(books))
	for _, b := range books {
		book, err := catalog.CreateBook(ctx, seedActor, service.CreateBookInput{
			Title:  b.title,
			Author: b.author,
			ISBN:   b.isbn,
		})
		if err != nil {
			log.Fatalf("Failed to create book %q: %v", b.title, err)
		}
		bookIDs = append(bookIDs, book.ID)
	}
	fmt.Printf("Created %d books\n", len(bookIDs))

	borrowers := []struct {
		name, email string
	}{
		{"Ada Fenwick", "ada@example.com"},
		{"Bruno Keller", "bruno@example.com"},
		{"Clara Osei", "clara@example.com"},
		{"Dmitri Volkov", "dmitri@example.com"},
	}

	borrowerIDs := make([]string, 0, len(borrowers))
	for _, b := range borrowers {
		borrower, err := catalog.CreateBorrower(ctx, seedActor, b.name, b.email)
		if err != nil {
			log.Fatalf("Failed to create borrower %q: %v", b.name, err)
		}
		borrowerIDs = append(borrowerIDs, borrower.ID)
	}
	fmt.Printf("Created %d borrowers\n", len(borrowerIDs))

	// One completed loan cycle for the first borrower.
	due := time.Now().Add(14 * 24 * time.Hour)
	loan, err := circulation.CreateLoan(ctx, seedActor, bookIDs[0], borrowerIDs[0], due)
	if err != nil {
		log.Fatalf("Failed to create loan: %v", err)
	}
	if _, err := circulation.ReturnBook(ctx, seedActor, loan.ID); err != nil {
		log.Fatalf("Failed to return loan: %v", err)
	}

	// Two open loans.
	for i, pair := range [][2]int{{1, 0}, {2, 1}} {
		if _, err := circulation.CreateLoan(ctx, seedActor, bookIDs[pair[0]], borrowerIDs[pair[1]], due); err != nil {
			log.Fatalf("Failed to create open loan %d: %v", i, err)
		}
	}

	// One loan backdated past its due date, so the next sweep pass flips
	// it to overdue. The service refuses past dates, so write directly.
	pastDue, err := circulation.CreateLoan(ctx, seedActor, bookIDs[3], borrowerIDs[2], due)
	if err != nil {
		log.Fatalf("Failed to create past-due loan: %v", err)
	}
	err = s.Update(ctx, func(tx *store.Tx) error {
		l, err := tx.GetLoan(pastDue.ID)
		if err != nil {
			return err
		}
		l.LoanDate = time.Now().Add(-20 * 24 * time.Hour)
		l.ExpectedReturnDate = time.Now().Add(-6 * 24 * time.Hour)
		return tx.PutLoan(l)
	})
	if err != nil {
		log.Fatalf("Failed to backdate loan: %v", err)
	}

	// A waitlist on one of the loaned books.
	if _, err := waitlist.Enqueue(ctx, seedActor, bookIDs[1], borrowerIDs[3]); err != nil {
		log.Fatalf("Failed to enqueue waitlist entry: %v", err)
	}

	fmt.Println("Seed complete: 1 returned loan, 3 open loans (1 past due), 1 waitlist entry")
}
