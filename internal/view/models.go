package view

import (
	"encoding/json"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Placeholders for catalog fields the catalog did not provide.
const (
	NoTitle       = "No title available"
	NoAuthor      = "No author available"
	NoDescription = "No description available."
	NoImage       = "No Image"
	NoNotes       = "No notes available."
	NoShelves     = "No bookshelves available"
	NoResults     = "No results found. Try another search."
	BookNotFound  = "Book not found"
)

const (
	MarkAsRead   = "Mark as Read"
	MarkAsUnread = "Mark as Unread"
	Marking      = "Marking..."

	ShelfAddedToast = "Book successfully added to shelf!"
)

// ToggleLabel is the label of the read toggle for the current status.
func ToggleLabel(status entities.ReadStatus) string {
	if status == entities.ReadStatusRead {
		return MarkAsUnread
	}
	return MarkAsRead
}

// ToastTrigger builds the HX-Trigger header value that shows a toast.
func ToastTrigger(message string) string {
	payload, _ := json.Marshal(map[string]string{"showToast": message})
	return string(payload)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// SearchResult is one row of the results grid.
type SearchResult struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	CoverURL      string `json:"cover_url,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

func NewSearchResults(entries []entities.CatalogEntry) []SearchResult {
	results := make([]SearchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, SearchResult{
			ID:            e.ID,
			Title:         orDefault(e.Title, NoTitle),
			CoverURL:      e.CoverURL,
			PublishedDate: catalog.FormatPublishedDate(e.PublishedDate),
		})
	}
	return results
}

// ShelfOption is one entry of the "add to shelf" menu.
type ShelfOption struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Contains bool   `json:"contains"`
}

// Detail is everything the book overlay shows.
type Detail struct {
	BookID        string        `json:"book_id"`
	Title         string        `json:"title"`
	Authors       string        `json:"authors"`
	CoverURL      string        `json:"cover_url,omitempty"`
	PublishedDate string        `json:"published_date,omitempty"`
	Description   []string      `json:"description"`
	Status        string        `json:"read_status"`
	ToggleLabel   string        `json:"toggle_label"`
	Note          string        `json:"note"`
	Rating        int           `json:"rating,omitempty"`
	Shelves       []ShelfOption `json:"shelves"`
}

// NewDetail combines catalog data with the owner's synchronized state. A nil
// state means the owner never touched the book.
func NewDetail(entry *entities.CatalogEntry, state *entities.UserBook, shelves []entities.Shelf, containing []uint) Detail {
	status := entities.DefaultReadStatus
	d := Detail{
		BookID:        entry.ID,
		Title:         orDefault(entry.Title, NoTitle),
		Authors:       orDefault(entry.AuthorLine(), NoAuthor),
		CoverURL:      entry.CoverURL,
		PublishedDate: catalog.FormatPublishedDate(entry.PublishedDate),
		Description:   catalog.Paragraphs(entry.Description),
	}
	if len(d.Description) == 0 {
		d.Description = []string{NoDescription}
	}

	if state != nil {
		status = state.ReadStatus
		d.Note = state.NoteText()
		if state.Rating != nil {
			d.Rating = *state.Rating
		}
	}
	d.Status = string(status)
	d.ToggleLabel = ToggleLabel(status)

	d.Shelves = NewShelfOptions(shelves, containing)
	return d
}

// NewShelfOptions marks which of the owner's shelves already hold the book.
func NewShelfOptions(shelves []entities.Shelf, containing []uint) []ShelfOption {
	on := make(map[uint]bool, len(containing))
	for _, id := range containing {
		on[id] = true
	}
	options := make([]ShelfOption, 0, len(shelves))
	for _, s := range shelves {
		options = append(options, ShelfOption{ID: s.ID, Name: s.Name, Contains: on[s.ID]})
	}
	return options
}

// NoteText returns the note or its placeholder.
func (d Detail) NoteText() string {
	return orDefault(d.Note, NoNotes)
}

// ShelfBookView is one book on a shelf page.
type ShelfBookView struct {
	BookID        string `json:"book_id"`
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	CoverURL      string `json:"cover_url,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// NewShelfBooks renders members, falling back to placeholders for books
// whose snapshot has not been fetched yet.
func NewShelfBooks(books []library.ShelfBook) []ShelfBookView {
	views := make([]ShelfBookView, 0, len(books))
	for _, b := range books {
		v := ShelfBookView{BookID: b.BookID, Title: NoTitle, Authors: NoAuthor}
		if b.Snapshot != nil {
			v.Title = orDefault(b.Snapshot.Title, NoTitle)
			v.Authors = orDefault(b.Snapshot.Authors, NoAuthor)
			v.CoverURL = b.Snapshot.CoverURL
			v.PublishedDate = catalog.FormatPublishedDate(b.Snapshot.PublishedDate)
		}
		views = append(views, v)
	}
	return views
}

var statusLabels = map[entities.ReadStatus]string{
	entities.ReadStatusWantToRead: "Want to read",
	entities.ReadStatusReading:    "Reading",
	entities.ReadStatusRead:       "Read",
	entities.ReadStatusUnread:     "Unread",
}

// StatusLabel is the human name of a read status.
func StatusLabel(status entities.ReadStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}
