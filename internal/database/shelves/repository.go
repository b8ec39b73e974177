// Package shelves provides database operations for shelves and their members.
//
// Every method is scoped to an owner. A shelf owned by someone else is
// reported as entities.ErrNotFound, the same as a missing one.
//
// # Usage
//
//	repo := shelves.NewRepository(db)
//	shelf, err := repo.CreateShelf(ctx, ownerID, "To Read")
//	_, err = repo.AddMember(ctx, ownerID, shelf.ID, "zyTCAlFPjgYC")
package shelves

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository handles shelf and membership database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new shelves repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// NormalizeName trims a shelf name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", entities.ErrEmptyShelfName
	}
	if utf8.RuneCountInString(name) > entities.MaxShelfNameLength {
		return "", entities.ErrShelfNameTooLong
	}
	return name, nil
}

// ListShelves returns the owner's shelves, oldest first.
func (r *Repository) ListShelves(ctx context.Context, ownerID uint) ([]entities.Shelf, error) {
	var shelves []entities.Shelf
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&shelves).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shelves: %w", err)
	}
	return shelves, nil
}

// GetShelf returns a single shelf owned by ownerID.
func (r *Repository) GetShelf(ctx context.Context, ownerID, shelfID uint) (*entities.Shelf, error) {
	return r.findShelf(r.db.WithContext(ctx), ownerID, shelfID)
}

// CreateShelf creates a shelf with a trimmed, validated name.
func (r *Repository) CreateShelf(ctx context.Context, ownerID uint, name string) (*entities.Shelf, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	shelf := &entities.Shelf{OwnerID: ownerID, Name: name}
	if err := r.db.WithContext(ctx).Create(shelf).Error; err != nil {
		return nil, fmt.Errorf("failed to create shelf: %w", err)
	}
	return shelf, nil
}

// RenameShelf changes a shelf's name.
func (r *Repository) RenameShelf(ctx context.Context, ownerID, shelfID uint, name string) (*entities.Shelf, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	shelf, err := r.findShelf(db, ownerID, shelfID)
	if err != nil {
		return nil, err
	}

	if err := db.Model(shelf).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("failed to rename shelf: %w", err)
	}
	shelf.Name = name
	return shelf, nil
}

// DeleteShelf removes a shelf and all of its memberships in one transaction.
func (r *Repository) DeleteShelf(ctx context.Context, ownerID, shelfID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.findShelf(tx, ownerID, shelfID); err != nil {
			return err
		}
		if err := tx.Where("shelf_id = ?", shelfID).Delete(&entities.ShelfMembership{}).Error; err != nil {
			return fmt.Errorf("failed to delete shelf members: %w", err)
		}
		if err := tx.Delete(&entities.Shelf{}, shelfID).Error; err != nil {
			return fmt.Errorf("failed to delete shelf: %w", err)
		}
		return nil
	})
}

// ListMembers returns the catalog ids on a shelf in the order they were added.
func (r *Repository) ListMembers(ctx context.Context, ownerID, shelfID uint) ([]string, error) {
	db := r.db.WithContext(ctx)
	if _, err := r.findShelf(db, ownerID, shelfID); err != nil {
		return nil, err
	}

	var bookIDs []string
	err := db.Model(&entities.ShelfMembership{}).
		Where("shelf_id = ?", shelfID).
		Order("created_at ASC, id ASC").
		Pluck("book_id", &bookIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shelf members: %w", err)
	}
	return bookIDs, nil
}

// AddMember puts a book on a shelf. Adding a book that is already there
// returns the existing membership.
func (r *Repository) AddMember(ctx context.Context, ownerID, shelfID uint, bookID string) (*entities.ShelfMembership, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, entities.ErrEmptyBookID
	}

	var membership entities.ShelfMembership
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.findShelf(tx, ownerID, shelfID); err != nil {
			return err
		}

		row := entities.ShelfMembership{ShelfID: shelfID, BookID: bookID}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shelf_id"}, {Name: "book_id"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to add shelf member: %w", err)
		}

		return tx.Where("shelf_id = ? AND book_id = ?", shelfID, bookID).First(&membership).Error
	})
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// RemoveMember takes a book off a shelf. Removing a book that is not on the
// shelf succeeds.
func (r *Repository) RemoveMember(ctx context.Context, ownerID, shelfID uint, bookID string) error {
	db := r.db.WithContext(ctx)
	if _, err := r.findShelf(db, ownerID, shelfID); err != nil {
		return err
	}

	err := db.Where("shelf_id = ? AND book_id = ?", shelfID, strings.TrimSpace(bookID)).
		Delete(&entities.ShelfMembership{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove shelf member: %w", err)
	}
	return nil
}

// ShelvesContaining returns the ids of the owner's shelves that hold bookID.
func (r *Repository) ShelvesContaining(ctx context.Context, ownerID uint, bookID string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&entities.ShelfMembership{}).
		Joins("JOIN shelves ON shelves.id = shelf_memberships.shelf_id").
		Where("shelves.owner_id = ? AND shelf_memberships.book_id = ?", ownerID, bookID).
		Order("shelves.id ASC").
		Pluck("shelves.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up shelves for book: %w", err)
	}
	return ids, nil
}

func (r *Repository) findShelf(db *gorm.DB, ownerID, shelfID uint) (*entities.Shelf, error) {
	var shelf entities.Shelf
	err := db.Where("id = ? AND owner_id = ?", shelfID, ownerID).First(&shelf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load shelf: %w", err)
	}
	return &shelf, nil
}
