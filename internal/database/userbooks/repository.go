// Package userbooks provides database operations for per-user reading state.
//
// A state row is created lazily by the first edit of any field. Each setter
// only writes its own columns, so concurrent edits of different fields never
// overwrite each other.
package userbooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the owner's state for a book, or entities.ErrNoState when the
// book has never been touched.
func (r *Repository) Get(ctx context.Context, ownerID uint, bookID string) (*entities.UserBook, error) {
	var state entities.UserBook
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND book_id = ?", ownerID, bookID).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrNoState
		}
		return nil, fmt.Errorf("failed to load reading state: %w", err)
	}
	return &state, nil
}

// SetReadStatus records a new status, creating the row if needed.
func (r *Repository) SetReadStatus(ctx context.Context, ownerID uint, bookID string, status entities.ReadStatus) (*entities.UserBook, error) {
	if !status.Valid() {
		return nil, entities.ErrInvalidReadStatus
	}
	return r.upsert(ctx, &entities.UserBook{
		OwnerID:    ownerID,
		BookID:     bookID,
		ReadStatus: status,
	}, "read_status")
}

// SetNote stores a note. A blank note clears it.
func (r *Repository) SetNote(ctx context.Context, ownerID uint, bookID string, note string) (*entities.UserBook, error) {
	var value *string
	if strings.TrimSpace(note) != "" {
		value = &note
	}
	return r.upsert(ctx, &entities.UserBook{
		OwnerID:    ownerID,
		BookID:     bookID,
		ReadStatus: entities.DefaultReadStatus,
		Note:       value,
	}, "note")
}

// SetRating stores a 1..5 rating; nil clears it.
func (r *Repository) SetRating(ctx context.Context, ownerID uint, bookID string, rating *int) (*entities.UserBook, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, entities.ErrInvalidRating
	}
	return r.upsert(ctx, &entities.UserBook{
		OwnerID:    ownerID,
		BookID:     bookID,
		ReadStatus: entities.DefaultReadStatus,
		Rating:     rating,
	}, "rating")
}

// SetReadingDates stores both reading dates; either may be nil.
func (r *Repository) SetReadingDates(ctx context.Context, ownerID uint, bookID string, started, finished *time.Time) (*entities.UserBook, error) {
	if started != nil && finished != nil && finished.Before(*started) {
		return nil, entities.ErrInvalidDates
	}
	return r.upsert(ctx, &entities.UserBook{
		OwnerID:    ownerID,
		BookID:     bookID,
		ReadStatus: entities.DefaultReadStatus,
		StartedAt:  started,
		FinishedAt: finished,
	}, "started_at", "finished_at")
}

// List returns the owner's states, most recently updated first. An empty
// status returns every state.
func (r *Repository) List(ctx context.Context, ownerID uint, status entities.ReadStatus) ([]entities.UserBook, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if status != "" {
		if !status.Valid() {
			return nil, entities.ErrInvalidReadStatus
		}
		query = query.Where("read_status = ?", status)
	}

	var states []entities.UserBook
	if err := query.Order("updated_at DESC, book_id ASC").Find(&states).Error; err != nil {
		return nil, fmt.Errorf("failed to list reading states: %w", err)
	}
	return states, nil
}

// CountByStatus returns how many books the owner has in each status.
func (r *Repository) CountByStatus(ctx context.Context, ownerID uint) (map[entities.ReadStatus]int64, error) {
	var rows []struct {
		ReadStatus entities.ReadStatus
		Count      int64
	}
	err := r.db.WithContext(ctx).
		Model(&entities.UserBook{}).
		Select("read_status, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Group("read_status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count reading states: %w", err)
	}

	counts := make(map[entities.ReadStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.ReadStatus] = row.Count
	}
	return counts, nil
}

func (r *Repository) upsert(ctx context.Context, row *entities.UserBook, columns ...string) (*entities.UserBook, error) {
	row.BookID = strings.TrimSpace(row.BookID)
	if row.BookID == "" {
		return nil, entities.ErrEmptyBookID
	}

	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save reading state: %w", err)
	}

	return r.Get(ctx, row.OwnerID, row.BookID)
}
