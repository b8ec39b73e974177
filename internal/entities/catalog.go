package entities

import (
	"strings"
	"time"
)

// CatalogEntry is read-only book metadata from the external catalog.
// Optional fields are empty when the catalog does not provide them.
type CatalogEntry struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Description   string   `json:"description,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
}

// AuthorLine joins the authors for display.
func (e CatalogEntry) AuthorLine() string {
	return strings.Join(e.Authors, ", ")
}

// BookSnapshot is a stored copy of catalog metadata for books referenced by a
// shelf, so shelf pages render without one catalog call per book.
type BookSnapshot struct {
	CatalogID     string    `gorm:"primaryKey;size:64" json:"catalog_id"`
	Title         string    `gorm:"size:512" json:"title"`
	Authors       string    `gorm:"size:1024" json:"authors"`
	CoverURL      string    `gorm:"size:2048" json:"cover_url,omitempty"`
	PublishedDate string    `gorm:"size:32" json:"published_date,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

func (BookSnapshot) TableName() string {
	return "book_snapshots"
}

// NewBookSnapshot copies the fields worth keeping from a catalog entry.
func NewBookSnapshot(entry CatalogEntry, fetchedAt time.Time) *BookSnapshot {
	return &BookSnapshot{
		CatalogID:     entry.ID,
		Title:         entry.Title,
		Authors:       entry.AuthorLine(),
		CoverURL:      entry.CoverURL,
		PublishedDate: entry.PublishedDate,
		FetchedAt:     fetchedAt,
	}
}
