package entities

import (
	"strings"
	"time"
)

type ReadStatus string

const (
	ReadStatusWantToRead ReadStatus = "WANT_TO_READ"
	ReadStatusReading    ReadStatus = "READING"
	ReadStatusRead       ReadStatus = "READ"
	ReadStatusUnread     ReadStatus = "UNREAD"
)

// DefaultReadStatus is assigned when a state row is created by a non-status edit.
const DefaultReadStatus = ReadStatusUnread

// ParseReadStatus accepts the canonical upper-case names, case-insensitively.
func ParseReadStatus(s string) (ReadStatus, error) {
	status := ReadStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", ErrInvalidReadStatus
	}
	return status, nil
}

func (s ReadStatus) Valid() bool {
	switch s {
	case ReadStatusWantToRead, ReadStatusReading, ReadStatusRead, ReadStatusUnread:
		return true
	}
	return false
}

// Toggled returns the status a "Mark as ..." toggle moves to.
func (s ReadStatus) Toggled() ReadStatus {
	if s == ReadStatusRead {
		return ReadStatusUnread
	}
	return ReadStatusRead
}

// UserBook is the per-user reading state of one catalog book.
// At most one row exists per (owner, book).
type UserBook struct {
	OwnerID    uint       `gorm:"primaryKey;autoIncrement:false" json:"owner_id"`
	BookID     string     `gorm:"primaryKey;size:64" json:"book_id"`
	ReadStatus ReadStatus `gorm:"size:20;not null;default:'UNREAD'" json:"read_status"`
	Note       *string    `gorm:"type:text" json:"note"`
	Rating     *int       `json:"rating"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Owner      Profile    `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (UserBook) TableName() string {
	return "user_books"
}

// NoteText returns the note or an empty string.
func (b *UserBook) NoteText() string {
	if b == nil || b.Note == nil {
		return ""
	}
	return *b.Note
}
