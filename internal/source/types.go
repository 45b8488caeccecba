// Package source defines the upstream contract: the shapes the content
// fetcher delivers and the deterministic ordering the pipeline imposes on
// them. The fetcher itself is an external collaborator; only its interface
// lives here.
package source

import (
	"context"
	"sort"
	"strconv"
)

// Item is one content record from the origin platform (post, page, or custom
// type). Immutable once fetched; the orchestrator owns it for the duration of
// a run.
type Item struct {
	ID       string              `json:"id"`
	Locale   string              `json:"locale"`
	Slug     string              `json:"slug"`
	Path     string              `json:"path"`
	Title    string              `json:"title"`
	Content  string              `json:"content"`
	Excerpt  string              `json:"excerpt"`
	AuthorID string              `json:"author_id"`
	Date     string              `json:"date"`
	Terms    map[string][]string `json:"terms,omitempty"`  // taxonomy name -> term ids
	Fields   map[string]any      `json:"fields,omitempty"` // arbitrary custom fields
	MediaIDs []string            `json:"media_ids,omitempty"`
}

// Field returns a named raw value, checking well-known fields before the
// custom field map.
func (it *Item) Field(name string) any {
	switch name {
	case "id":
		return it.ID
	case "slug":
		return it.Slug
	case "title":
		return it.Title
	case "content":
		return it.Content
	case "excerpt":
		return it.Excerpt
	case "author_id":
		return it.AuthorID
	case "date":
		return it.Date
	}
	if terms, ok := it.Terms[name]; ok {
		return terms
	}
	return it.Fields[name]
}

// Media is one entry from the flat, locale-independent media collection.
type Media struct {
	ID        string `json:"id"`
	OriginURL string `json:"origin_url"`
	AltText   string `json:"alt_text"`
	Title     string `json:"title"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Author is one entry from the flat author collection.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Slug        string `json:"slug"`
}

// Term is one taxonomy term (category, tag, or custom taxonomy entry).
type Term struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Fetcher is the upstream collaborator contract. Implementations page through
// the origin platform's REST API; the pipeline only sees complete slices.
type Fetcher interface {
	Items(ctx context.Context, locale, contentType string) ([]Item, error)
	Media(ctx context.Context) ([]Media, error)
	Authors(ctx context.Context) ([]Author, error)
	Terms(ctx context.Context, taxonomy string) ([]Term, error)
}

// Sort orders items by ascending numeric ID, falling back to string order for
// non-numeric IDs. Fetch order is not guaranteed stable across runs, and slug
// collision suffixes depend on processing order, so the pipeline always sorts
// before organizing.
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aerr := strconv.ParseInt(items[i].ID, 10, 64)
		b, berr := strconv.ParseInt(items[j].ID, 10, 64)
		if aerr == nil && berr == nil {
			return a < b
		}
		if aerr == nil {
			return true
		}
		if berr == nil {
			return false
		}
		return items[i].ID < items[j].ID
	})
}
