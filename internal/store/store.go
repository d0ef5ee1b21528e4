// Package store provides Badger-backed persistence for Bookwarden entities.
//
// All engine mutations run through Store.Update, which executes the given
// closure inside one Badger transaction: every entity write plus the audit
// append commits atomically or not at all. Badger's optimistic concurrency
// control (snapshot isolation with commit-time conflict detection) is the
// per-book serialization mechanism - two concurrent transactions touching
// the same book conflict at commit, the loser is retried a bounded number
// of times and then surfaces as a Conflict error.
package store

import (
	"context"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
)

// maxTxnRetries bounds how often a conflicting transaction is re-run before
// the operation fails with Conflict. Retries re-execute the closure from
// scratch against a fresh snapshot, so preconditions are re-checked.
const maxTxnRetries = 3

// auditSeqBandwidth is how many sequence numbers Badger leases at a time.
const auditSeqBandwidth = 64

// SearchIndexer is the interface for updating the catalog search index.
// Store uses this to keep search in sync without depending on the search
// implementation.
type SearchIndexer interface {
	IndexBook(ctx context.Context, book *Indexable) error
	DeleteBook(ctx context.Context, bookID string) error
}

// Indexable is the subset of book fields fed to the search index.
type Indexable struct {
	ID     string
	Title  string
	Author string
	ISBN   string
	Status string
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexBook is a no-op.
func (NoopSearchIndexer) IndexBook(context.Context, *Indexable) error { return nil }

// DeleteBook is a no-op.
func (NoopSearchIndexer) DeleteBook(context.Context, string) error { return nil }

// Store wraps a Badger database instance.
type Store struct {
	db       *badger.DB
	logger   *slog.Logger
	auditSeq *badger.Sequence

	// Search indexer for keeping catalog search in sync with store changes.
	// Set via SetSearchIndexer after store creation to avoid circular dependencies.
	searchIndexer SearchIndexer
}

// New opens (or creates) a Badger database at the given path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "open badger db")
	}

	seq, err := db.GetSequence([]byte(auditSeqKey), auditSeqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "open audit sequence")
	}

	s := &Store{
		db:            db,
		logger:        logger,
		auditSeq:      seq,
		searchIndexer: NoopSearchIndexer{},
	}

	if logger != nil {
		logger.Info("badger database opened", "path", path)
	}

	return s, nil
}

// SetSearchIndexer wires the search index. Passing nil resets to a no-op.
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	if indexer == nil {
		s.searchIndexer = NoopSearchIndexer{}
		return
	}
	s.searchIndexer = indexer
}

// Close releases the audit sequence lease and closes the database.
func (s *Store) Close() error {
	if err := s.auditSeq.Release(); err != nil && s.logger != nil {
		s.logger.Warn("release audit sequence", "error", err)
	}
	return s.db.Close()
}

// Update runs fn inside a read-write transaction. On commit conflict the
// closure is re-executed against a fresh snapshot up to maxTxnRetries times;
// exhaustion surfaces as Conflict rather than blocking. Domain errors
// returned by fn abort the transaction and pass through unchanged.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	for attempt := 0; attempt <= maxTxnRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(&Tx{txn: txn, store: s})
		})
		if !domainerrors.Is(err, badger.ErrConflict) {
			return err
		}
		if s.logger != nil {
			s.logger.Debug("transaction conflict, retrying", "attempt", attempt+1)
		}
	}
	return domainerrors.Conflict("operation conflicted with a concurrent update").WithCause(err)
}

// View runs fn inside a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn, store: s})
	})
}

// nextAuditSeq leases the next audit sequence number. Numbers from aborted
// transactions are burned, which keeps assignment an atomic-counter affair
// decoupled from per-book conflict detection.
func (s *Store) nextAuditSeq() (uint64, error) {
	seq, err := s.auditSeq.Next()
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "next audit sequence")
	}
	// Badger sequences start at zero; audit numbering starts at one.
	return seq + 1, nil
}
