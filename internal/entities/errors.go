package entities

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNoState           = errors.New("no reading state yet")
	ErrEmptyShelfName    = errors.New("shelf name is required")
	ErrShelfNameTooLong  = errors.New("shelf name must be at most 100 characters")
	ErrEmptyBookID       = errors.New("book id is required")
	ErrInvalidReadStatus = errors.New("read status must be one of WANT_TO_READ, READING, READ, UNREAD")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidDates      = errors.New("finished date must not be before started date")
)

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyShelfName),
		errors.Is(err, ErrShelfNameTooLong),
		errors.Is(err, ErrEmptyBookID),
		errors.Is(err, ErrInvalidReadStatus),
		errors.Is(err, ErrInvalidRating),
		errors.Is(err, ErrInvalidDates):
		return true
	}
	return false
}
