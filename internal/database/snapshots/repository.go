// Package snapshots stores copies of catalog metadata for shelved books.
package snapshots

import (
	"context"
	"fmt"

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

// Upsert inserts or refreshes the snapshot for snapshot.CatalogID.
func (r *Repository) Upsert(ctx context.Context, snapshot *entities.BookSnapshot) error {
	if snapshot.CatalogID == "" {
		return entities.ErrEmptyBookID
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "catalog_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "authors", "cover_url", "published_date", "fetched_at"}),
	}).Create(snapshot).Error
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetMany returns the stored snapshots for the given ids, keyed by catalog id.
// Ids without a snapshot are absent from the map.
func (r *Repository) GetMany(ctx context.Context, catalogIDs []string) (map[string]entities.BookSnapshot, error) {
	result := make(map[string]entities.BookSnapshot, len(catalogIDs))
	if len(catalogIDs) == 0 {
		return result, nil
	}

	var rows []entities.BookSnapshot
	if err := r.db.WithContext(ctx).Where("catalog_id IN ?", catalogIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	for _, row := range rows {
		result[row.CatalogID] = row
	}
	return result, nil
}

// DeleteOrphans removes snapshots no shelf or reading state refers to.
func (r *Repository) DeleteOrphans(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("catalog_id NOT IN (?)", r.db.Model(&entities.ShelfMembership{}).Select("book_id")).
		Where("catalog_id NOT IN (?)", r.db.Model(&entities.UserBook{}).Select("book_id")).
		Delete(&entities.BookSnapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete orphan snapshots: %w", result.Error)
	}
	return result.RowsAffected, nil
}
