package api

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/search"
	"github.com/bookwarden/bookwarden-server/internal/service"
	"github.com/bookwarden/bookwarden-server/internal/store"
	"github.com/bookwarden/bookwarden-server/internal/validation"
)

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api humatest.TestAPI
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	searchService := search.NewService(index, st, logger)

	risk := service.NewRiskScorer(config.RiskConfig{
		SuspendOverdueCount: 3,
		SuspendWindow:       180 * 24 * time.Hour,
		InactivityWindow:    365 * 24 * time.Hour,
	})

	services := &Services{
		Circulation: service.NewCirculationService(st, risk, service.NoopNotifier{},
			config.CirculationConfig{LoanPeriod: 14 * 24 * time.Hour}, logger),
		Catalog:  service.NewCatalogService(st, nil, config.MetadataConfig{}, logger),
		Waitlist: service.NewWaitlistService(st, logger),
		Sweep: service.NewSweepService(st, risk, service.NoopNotifier{},
			config.SweepConfig{Interval: 24 * time.Hour, LostThresholdDays: 60}, logger),
		Audit:  service.NewAuditService(st),
		Search: searchService,
	}

	router := chi.NewRouter()
	humaConfig := huma.DefaultConfig("Bookwarden API Test", "1.0.0")
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:     st,
		services:  services,
		router:    router,
		api:       api,
		validator: validation.New(),
		logger:    logger,
	}
	s.setupRoutes()

	return &testServer{Server: s, api: humatest.Wrap(t, api)}
}

func (ts *testServer) createBook(t *testing.T, title string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/books", "X-Actor: librarian", map[string]any{
		"title":  title,
		"author": "Test Author",
	})
	require.Equal(t, http.StatusOK, resp.Code, "create book failed: %s", resp.Body.String())

	var book BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &book))
	return book.ID
}

func (ts *testServer) createBorrower(t *testing.T, name string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/borrowers", "X-Actor: librarian", map[string]any{
		"name": name,
	})
	require.Equal(t, http.StatusOK, resp.Code, "create borrower failed: %s", resp.Body.String())

	var borrower BorrowerResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &borrower))
	return borrower.ID
}

func (ts *testServer) createLoan(t *testing.T, bookID, borrowerID string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/loans", "X-Actor: librarian", map[string]any{
		"book_id":              bookID,
		"borrower_id":          borrowerID,
		"expected_return_date": time.Now().Add(14 * 24 * time.Hour),
	})
	require.Equal(t, http.StatusOK, resp.Code, "create loan failed: %s", resp.Body.String())

	var loan LoanResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &loan))
	return loan.ID
}

// === Tests ===

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Contains(t, health.Components, "search")
}

func TestCreateBook_Validation(t *testing.T) {
	ts := setupTestServer(t)

	// Neither a title nor an ISBN to derive one from.
	resp := ts.api.Post("/api/v1/books", "X-Actor: librarian", map[string]any{
		"author": "Anon",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Post("/api/v1/books", "X-Actor: librarian", map[string]any{
		"title": "Valid Title",
		"isbn":  "not-an-isbn",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "VALIDATION", apiErr.Code)
}

func TestGetBook_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/book_missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestLoanLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	bookID := ts.createBook(t, "The Dispossessed")
	borrowerID := ts.createBorrower(t, "Shevek")
	loanID := ts.createLoan(t, bookID, borrowerID)

	// The book is now on loan.
	resp := ts.api.Get("/api/v1/books/" + bookID)
	require.Equal(t, http.StatusOK, resp.Code)
	var book BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &book))
	assert.Equal(t, "on_loan", book.Status)

	// Lending it again conflicts.
	other := ts.createBorrower(t, "Takver")
	resp = ts.api.Post("/api/v1/loans", "X-Actor: librarian", map[string]any{
		"book_id":              bookID,
		"borrower_id":          other,
		"expected_return_date": time.Now().Add(14 * 24 * time.Hour),
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	// Return by book reference.
	resp = ts.api.Post("/api/v1/returns", "X-Actor: librarian", map[string]any{
		"ref": bookID,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var loan LoanResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &loan))
	assert.Equal(t, loanID, loan.ID)
	assert.Equal(t, "returned", loan.Status)
	assert.NotNil(t, loan.ActualReturnDate)

	// Returning twice is an invalid transition.
	resp = ts.api.Post("/api/v1/returns", "X-Actor: librarian", map[string]any{
		"ref": loanID,
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "INVALID_TRANSITION", apiErr.Code)
}

func TestCreateLoan_PastReturnDate(t *testing.T) {
	ts := setupTestServer(t)

	bookID := ts.createBook(t, "Past Due")
	borrowerID := ts.createBorrower(t, "Late Larry")

	resp := ts.api.Post("/api/v1/loans", "X-Actor: librarian", map[string]any{
		"book_id":              bookID,
		"borrower_id":          borrowerID,
		"expected_return_date": time.Now().Add(-24 * time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWaitlistEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	bookID := ts.createBook(t, "Popular Book")
	holder := ts.createBorrower(t, "Holder")
	waiter := ts.createBorrower(t, "Waiter")

	// Joining the queue for an available book is a conflict.
	resp := ts.api.Post("/api/v1/books/"+bookID+"/waitlist", "X-Actor: librarian", map[string]any{
		"borrower_id": waiter,
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	ts.createLoan(t, bookID, holder)

	resp = ts.api.Post("/api/v1/books/"+bookID+"/waitlist", "X-Actor: librarian", map[string]any{
		"borrower_id": waiter,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var entry WaitlistEntryResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &entry))
	assert.Equal(t, 1, entry.Position)

	// Duplicate entry conflicts.
	resp = ts.api.Post("/api/v1/books/"+bookID+"/waitlist", "X-Actor: librarian", map[string]any{
		"borrower_id": waiter,
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.api.Get("/api/v1/books/" + bookID + "/waitlist")
	require.Equal(t, http.StatusOK, resp.Code)
	var list ListWaitlistOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list.Body))
	require.Len(t, list.Body.Entries, 1)
	assert.Equal(t, waiter, list.Body.Entries[0].BorrowerID)

	resp = ts.api.Delete("/api/v1/books/"+bookID+"/waitlist/"+waiter, "X-Actor: librarian")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Delete("/api/v1/books/"+bookID+"/waitlist/"+waiter, "X-Actor: librarian")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestIncidentAndResolve(t *testing.T) {
	ts := setupTestServer(t)

	bookID := ts.createBook(t, "Fragile Tome")
	borrowerID := ts.createBorrower(t, "Clumsy")
	ts.createLoan(t, bookID, borrowerID)

	resp := ts.api.Post("/api/v1/books/"+bookID+"/incidents", "X-Actor: librarian", map[string]any{
		"type":  "damaged",
		"notes": "water damage on cover",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var incident IncidentResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &incident))
	assert.Equal(t, borrowerID, incident.BorrowerID)
	assert.Equal(t, "pending", incident.Compensation)

	resp = ts.api.Get("/api/v1/books/" + bookID)
	require.Equal(t, http.StatusOK, resp.Code)
	var book BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &book))
	assert.Equal(t, "damaged", book.Status)

	// Back to circulation after repair.
	resp = ts.api.Post("/api/v1/books/"+bookID+"/resolve", "X-Actor: librarian")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &book))
	assert.Equal(t, "available", book.Status)

	// Resolving an available book is an invalid transition.
	resp = ts.api.Post("/api/v1/books/"+bookID+"/resolve", "X-Actor: librarian")
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.api.Post("/api/v1/books/"+bookID+"/incidents", "X-Actor: librarian", map[string]any{
		"type": "vaporized",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSuspendedBorrowerForbidden(t *testing.T) {
	ts := setupTestServer(t)

	bookID := ts.createBook(t, "Restricted")
	borrowerID := ts.createBorrower(t, "Risky")

	resp := ts.api.Patch("/api/v1/borrowers/"+borrowerID+"/status", "X-Actor: admin", map[string]any{
		"status": "suspended",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/loans", "X-Actor: librarian", map[string]any{
		"book_id":              bookID,
		"borrower_id":          borrowerID,
		"expected_return_date": time.Now().Add(14 * 24 * time.Hour),
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "FORBIDDEN", apiErr.Code)
}

func TestAuditQuery(t *testing.T) {
	ts := setupTestServer(t)

	bookID := ts.createBook(t, "Audited")
	borrowerID := ts.createBorrower(t, "Reader")
	ts.createLoan(t, bookID, borrowerID)
	resp := ts.api.Post("/api/v1/returns", "X-Actor: librarian", map[string]any{"ref": bookID})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/audit?book_id=" + bookID)
	require.Equal(t, http.StatusOK, resp.Code)

	var out QueryAuditOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out.Body))
	require.Len(t, out.Body.Entries, 3)

	actions := []string{}
	var lastSeq uint64
	for _, e := range out.Body.Entries {
		actions = append(actions, e.Action)
		assert.Greater(t, e.Seq, lastSeq)
		lastSeq = e.Seq
	}
	assert.Equal(t, []string{"book.created", "loan.created", "loan.returned"}, actions)

	resp = ts.api.Get("/api/v1/audit?actor=nobody")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out.Body))
	assert.Empty(t, out.Body.Entries)
}

func TestSearchEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	ts.createBook(t, "The Left Hand of Darkness")
	ts.createBook(t, "The Lathe of Heaven")

	resp := ts.api.Get("/api/v1/search?q=darkness")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result search.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "The Left Hand of Darkness", result.Hits[0].Title)
}

func TestAdminEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	ts.createBook(t, "Swept")

	resp := ts.api.Post("/api/v1/admin/sweep", "X-Actor: admin")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var sweep SweepOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sweep.Body))
	assert.Empty(t, sweep.Body.Transitions)

	resp = ts.api.Post("/api/v1/admin/reindex", "X-Actor: admin")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var reindex ReindexOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reindex.Body))
	assert.Equal(t, 1, reindex.Body.Indexed)
}

func TestRemoveBook(t *testing.T) {
	ts := setupTestServer(t)

	bookID := ts.createBook(t, "Withdrawn")

	resp := ts.api.Delete("/api/v1/books/"+bookID, "X-Actor: admin")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/books/" + bookID)
	require.Equal(t, http.StatusOK, resp.Code)
	var book BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &book))
	assert.Equal(t, "removed", book.Status)

	// Removed books do not come back through search.
	resp = ts.api.Get("/api/v1/search?q=withdrawn")
	require.Equal(t, http.StatusOK, resp.Code)
	var result search.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, uint64(0), result.Total)
}
