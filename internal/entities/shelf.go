package entities

import (
	"time"
)

// MaxShelfNameLength bounds user-chosen shelf names.
const MaxShelfNameLength = 100

type Shelf struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	OwnerID     uint              `gorm:"index;not null" json:"owner_id"`
	Name        string            `gorm:"size:100;not null" json:"name"`
	Owner       Profile           `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Memberships []ShelfMembership `gorm:"foreignKey:ShelfID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ShelfMembership links a shelf to a catalog book id. The (shelf_id, book_id)
// pair is unique; adding an existing pair is a no-op.
type ShelfMembership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ShelfID   uint      `gorm:"uniqueIndex:idx_shelf_book;not null" json:"shelf_id"`
	BookID    string    `gorm:"uniqueIndex:idx_shelf_book;size:64;not null" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Shelf) TableName() string {
	return "shelves"
}

func (ShelfMembership) TableName() string {
	return "shelf_memberships"
}
