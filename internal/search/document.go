// Package search provides full-text catalog search using Bleve: fuzzy
// title/author matching with status faceting, so staff can find a book
// without knowing its exact spelling or ID.
package search

import (
	"github.com/bookwarden/bookwarden-server/internal/store"
)

// Document is the shape of a catalog entry in the Bleve index.
//
// Status is denormalized into the index so availability can be filtered
// and faceted in one query; the store re-indexes on every status change.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	Publisher string `json:"publisher,omitempty"`
	Status    string `json:"status"`
}

// fromIndexable converts the store's indexing payload to a search document.
func fromIndexable(in *store.Indexable) *Document {
	return &Document{
		ID:     in.ID,
		Title:  in.Title,
		Author: in.Author,
		ISBN:   in.ISBN,
		Status: in.Status,
	}
}

// ToMap converts the document to a map with lowercase field names so they
// match the index mapping. Bleve would otherwise index by Go field name.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":     d.ID,
		"title":  d.Title,
		"status": d.Status,
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	return m
}
