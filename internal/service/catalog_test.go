package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/domain"
	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
	"github.com/bookwarden/bookwarden-server/internal/metadata/openlibrary"
)

func TestCatalog_CreateBookValidation(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.catalog.CreateBook(context.Background(), "test", CreateBookInput{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestCatalog_CreateBookWithEnrichment(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/isbn/9780441013593.json":
			w.Write([]byte(`{"title":"Dune","publishers":["Ace"],"authors":[{"key":"/authors/OL1A"}]}`))
		case "/authors/OL1A.json":
			w.Write([]byte(`{"name":"Frank Herbert"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client := openlibrary.NewClient(srv.URL, slog.New(slog.DiscardHandler))
	e.catalog.metadata = client
	e.catalog.cfg = config.MetadataConfig{Enabled: true}

	book, err := e.catalog.CreateBook(ctx, "test", CreateBookInput{ISBN: "978-0-441-01359-3"})
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, "Ace", book.Publisher)
	assert.Equal(t, "9780441013593", book.ISBN)

	// Supplied fields win over fetched metadata.
	book, err = e.catalog.CreateBook(ctx, "test", CreateBookInput{Title: "Dune (1st ed.)", ISBN: "9780441013593"})
	require.NoError(t, err)
	assert.Equal(t, "Dune (1st ed.)", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
}

func TestCatalog_EnrichmentFailureDoesNotBlock(t *testing.T) {
	e := newTestEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	e.catalog.metadata = openlibrary.NewClient(srv.URL, slog.New(slog.DiscardHandler))
	e.catalog.cfg = config.MetadataConfig{Enabled: true}

	book, err := e.catalog.CreateBook(context.Background(), "test", CreateBookInput{Title: "Obscure Zine", ISBN: "0000000000"})
	require.NoError(t, err)
	assert.Equal(t, "Obscure Zine", book.Title)
	assert.Empty(t, book.Author)
}

func TestCatalog_SetBorrowerStatus(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	borrower := e.addBorrower(t, "Alice")

	got, err := e.catalog.SetBorrowerStatus(ctx, "admin", borrower.ID, domain.MembershipSuspended)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipSuspended, got.Status)

	_, err = e.catalog.SetBorrowerStatus(ctx, "admin", borrower.ID, "banned")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	_, err = e.catalog.SetBorrowerStatus(ctx, "admin", "brw-missing", domain.MembershipActive)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestCatalog_BorrowerLoans(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	borrower := e.addBorrower(t, "Alice")
	first := e.loan(t, e.addBook(t, "Dune").ID, borrower.ID, 7*24*time.Hour)
	_, err := e.circulation.ReturnBook(ctx, "test", first.ID)
	require.NoError(t, err)
	e.loan(t, e.addBook(t, "Hyperion").ID, borrower.ID, 7*24*time.Hour)

	loans, err := e.catalog.BorrowerLoans(ctx, borrower.ID)
	require.NoError(t, err)
	assert.Len(t, loans, 2)

	_, err = e.catalog.BorrowerLoans(ctx, "brw-missing")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
