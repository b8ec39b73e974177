package http

import (
	"context"
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Each controller depends only on the operations it calls. library.Service
// and the catalog client satisfy these; see interfaces/checks.go.

type CatalogClient interface {
	Search(ctx context.Context, query string) ([]entities.CatalogEntry, error)
	GetByID(ctx context.Context, id string) (*entities.CatalogEntry, error)
}

type CoverFetcher interface {
	GetCover(ctx context.Context, bookID, coverURL string) (string, error)
}

type ShelfService interface {
	ListShelves(ctx context.Context, ownerID uint) ([]entities.Shelf, error)
	GetShelf(ctx context.Context, ownerID, shelfID uint) (*entities.Shelf, error)
	CreateShelf(ctx context.Context, ownerID uint, name string) (*entities.Shelf, error)
	RenameShelf(ctx context.Context, ownerID, shelfID uint, name string) (*entities.Shelf, error)
	DeleteShelf(ctx context.Context, ownerID, shelfID uint) error
	ShelfBooks(ctx context.Context, ownerID, shelfID uint) ([]library.ShelfBook, error)
	AddMember(ctx context.Context, ownerID, shelfID uint, bookID string) (*entities.ShelfMembership, error)
	RemoveMember(ctx context.Context, ownerID, shelfID uint, bookID string) error
	ShelvesContaining(ctx context.Context, ownerID uint, bookID string) ([]uint, error)
}

type ReadingService interface {
	GetUserBookState(ctx context.Context, ownerID uint, bookID string) (*entities.UserBook, error)
	SetReadStatus(ctx context.Context, ownerID uint, bookID string, status entities.ReadStatus) (*entities.UserBook, error)
	ToggleReadStatus(ctx context.Context, ownerID uint, bookID string) (*entities.UserBook, error)
	SetNote(ctx context.Context, ownerID uint, bookID string, note string) (*entities.UserBook, error)
	SetRating(ctx context.Context, ownerID uint, bookID string, rating *int) (*entities.UserBook, error)
	SetReadingDates(ctx context.Context, ownerID uint, bookID string, started, finished *time.Time) (*entities.UserBook, error)
	ListUserBooks(ctx context.Context, ownerID uint, status entities.ReadStatus) ([]entities.UserBook, error)
	ReadingStats(ctx context.Context, ownerID uint) (map[entities.ReadStatus]int64, error)
}

// LibraryService is the whole synchronized surface.
type LibraryService interface {
	ShelfService
	ReadingService
}

type ProfileStore interface {
	GetProfile(ctx context.Context, id uint) (*entities.Profile, error)
	UpdateProfile(ctx context.Context, id uint, displayName, avatarURL string) (*entities.Profile, error)
}
