package catalog

import (
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
	Error      *apiError  `json:"error,omitempty"`
}

type volumeInfo struct {
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle"`
	Authors       []string   `json:"authors"`
	PublishedDate string     `json:"publishedDate"`
	Description   string     `json:"description"`
	ImageLinks    imageLinks `json:"imageLinks"`
}

type imageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
	Small          string `json:"small"`
	Medium         string `json:"medium"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (v *volume) errorMessage() string {
	if v.Error == nil {
		return ""
	}
	return strings.ToLower(v.Error.Message)
}

func (v *volume) toEntry() entities.CatalogEntry {
	info := v.VolumeInfo

	authors := make([]string, 0, len(info.Authors))
	for _, a := range info.Authors {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}

	return entities.CatalogEntry{
		ID:            v.ID,
		Title:         strings.TrimSpace(info.Title),
		Authors:       authors,
		CoverURL:      secureURL(info.ImageLinks.best()),
		Description:   PlainText(info.Description),
		PublishedDate: strings.TrimSpace(info.PublishedDate),
	}
}

// best prefers the thumbnail, which is what search results and the detail
// view render at.
func (l imageLinks) best() string {
	for _, u := range []string{l.Thumbnail, l.SmallThumbnail, l.Small, l.Medium} {
		if u != "" {
			return u
		}
	}
	return ""
}

func secureURL(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
