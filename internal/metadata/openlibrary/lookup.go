package openlibrary

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
)

// BookInfo is the metadata Open Library knows about an edition.
type BookInfo struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	ISBN      string `json:"isbn"`
}

// editionResponse is the raw /isbn/{isbn}.json response. Authors come back
// as key references that need a second lookup.
type editionResponse struct {
	Title      string   `json:"title"`
	Publishers []string `json:"publishers"`
	Authors    []struct {
		Key string `json:"key"`
	} `json:"authors"`
}

type authorResponse struct {
	Name string `json:"name"`
}

// LookupISBN fetches edition metadata for an ISBN. Unknown ISBNs return a
// NotFound error; transport failures come back wrapped so callers can treat
// enrichment as best-effort.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*BookInfo, error) {
	isbn = strings.ReplaceAll(strings.TrimSpace(isbn), "-", "")
	if isbn == "" {
		return nil, domainerrors.Validation("isbn is empty")
	}

	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	lookupURL := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, url.PathEscape(isbn))

	c.logger.Debug("looking up ISBN", "isbn", isbn, "url", lookupURL)

	var edition editionResponse
	if err := c.getJSON(ctx, lookupURL, &edition); err != nil {
		return nil, err
	}

	info := &BookInfo{
		Title: edition.Title,
		ISBN:  isbn,
	}
	if len(edition.Publishers) > 0 {
		info.Publisher = edition.Publishers[0]
	}
	if len(edition.Authors) > 0 {
		info.Author = c.authorName(ctx, edition.Authors[0].Key)
	}
	return info, nil
}

// authorName resolves an author key reference to a display name.
// Best-effort: a failed author lookup leaves the name empty rather than
// failing the whole enrichment.
func (c *Client) authorName(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	var author authorResponse
	if err := c.getJSON(ctx, c.baseURL+key+".json", &author); err != nil {
		c.logger.Warn("author lookup failed", "key", key, "error", err)
		return ""
	}
	return author.Name
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domainerrors.NotFound("no metadata for this ISBN")
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("metadata request failed: status %d", resp.StatusCode)
	}

	if err := json.UnmarshalRead(resp.Body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
