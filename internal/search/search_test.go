package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestIndex creates a temporary catalog index.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	index, err := NewIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func seedCatalog(t *testing.T, index *Index) {
	t.Helper()

	docs := []*Document{
		{ID: "book-1", Title: "The Hobbit", Author: "J.R.R. Tolkien", ISBN: "9780261102217", Status: "available"},
		{ID: "book-2", Title: "The Fellowship of the Ring", Author: "J.R.R. Tolkien", Status: "on_loan"},
		{ID: "book-3", Title: "A Wizard of Earthsea", Author: "Ursula K. Le Guin", Status: "available"},
		{ID: "book-4", Title: "Hobby Farming for Beginners", Author: "Jane Smith", Status: "available"},
	}
	require.NoError(t, index.IndexDocuments(docs))
}

func TestNewIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_IndexAndDelete(t *testing.T) {
	index := setupTestIndex(t)

	doc := &Document{ID: "book-1", Title: "The Hobbit", Author: "J.R.R. Tolkien", Status: "available"}
	require.NoError(t, index.IndexDocument(doc))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, index.DeleteDocument("book-1"))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_SearchByTitle(t *testing.T) {
	index := setupTestIndex(t)
	seedCatalog(t, index)

	result, err := index.Search(context.Background(), Params{Query: "hobbit", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-1", result.Hits[0].ID)
	assert.Equal(t, "The Hobbit", result.Hits[0].Title)
}

func TestIndex_SearchByAuthor(t *testing.T) {
	index := setupTestIndex(t)
	seedCatalog(t, index)

	result, err := index.Search(context.Background(), Params{Query: "tolkien", Limit: 10})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(result.Hits), 2)
}

func TestIndex_SearchWithStatusFilter(t *testing.T) {
	index := setupTestIndex(t)
	seedCatalog(t, index)

	result, err := index.Search(context.Background(), Params{
		Query:    "tolkien",
		Statuses: []string{"available"},
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestIndex_SearchFuzzyMatch(t *testing.T) {
	index := setupTestIndex(t)
	seedCatalog(t, index)

	// One edit away from "hobbit".
	result, err := index.Search(context.Background(), Params{Query: "hobit", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestIndex_SearchByISBN(t *testing.T) {
	index := setupTestIndex(t)
	seedCatalog(t, index)

	result, err := index.Search(context.Background(), Params{Query: "978-0-26-110221-7", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestIndex_ReindexAfterStatusChange(t *testing.T) {
	index := setupTestIndex(t)
	seedCatalog(t, index)

	// Status changes re-index the same document ID in place.
	require.NoError(t, index.IndexDocument(&Document{
		ID: "book-1", Title: "The Hobbit", Author: "J.R.R. Tolkien", Status: "on_loan",
	}))

	result, err := index.Search(context.Background(), Params{
		Query:    "hobbit",
		Statuses: []string{"available"},
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
}

func TestIndex_MatchAllWhenQueryEmpty(t *testing.T) {
	index := setupTestIndex(t)
	seedCatalog(t, index)

	result, err := index.Search(context.Background(), Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), result.Total)
}
