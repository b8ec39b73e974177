package catalog

import (
	"strings"
	"time"
)

// FormatPublishedDate renders a catalog publication date for display.
// The catalog sends full dates, year-month or bare years; anything else is
// returned unchanged.
func FormatPublishedDate(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("January 2, 2006")
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t.Format("January 2006")
	}
	return s
}
