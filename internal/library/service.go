// Package library is the single path the web layer uses to read and change
// shelves and reading state.
//
// Reads go through a per-owner querycache.Cache. Writes go to the database
// and, once they succeed, publish an event that invalidates the affected
// keys before the write method returns. A read that starts after a write
// returned therefore never sees data older than that write.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mrlokans/bookshelf/internal/database/shelves"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/events"
	"github.com/mrlokans/bookshelf/internal/querycache"
)

// Cache key kinds.
const (
	KindShelves       = "shelves"
	KindMembers       = "members"
	KindUserBookState = "userBookState"
	KindUserBooks     = "userBooks"
	KindBookShelves   = "bookShelves"
)

// DefaultMaxOwners bounds the number of owners whose caches stay in memory.
const DefaultMaxOwners = 256

type ShelfStore interface {
	ListShelves(ctx context.Context, ownerID uint) ([]entities.Shelf, error)
	CreateShelf(ctx context.Context, ownerID uint, name string) (*entities.Shelf, error)
	RenameShelf(ctx context.Context, ownerID, shelfID uint, name string) (*entities.Shelf, error)
	DeleteShelf(ctx context.Context, ownerID, shelfID uint) error
	ListMembers(ctx context.Context, ownerID, shelfID uint) ([]string, error)
	AddMember(ctx context.Context, ownerID, shelfID uint, bookID string) (*entities.ShelfMembership, error)
	RemoveMember(ctx context.Context, ownerID, shelfID uint, bookID string) error
	ShelvesContaining(ctx context.Context, ownerID uint, bookID string) ([]uint, error)
}

type StateStore interface {
	Get(ctx context.Context, ownerID uint, bookID string) (*entities.UserBook, error)
	SetReadStatus(ctx context.Context, ownerID uint, bookID string, status entities.ReadStatus) (*entities.UserBook, error)
	SetNote(ctx context.Context, ownerID uint, bookID string, note string) (*entities.UserBook, error)
	SetRating(ctx context.Context, ownerID uint, bookID string, rating *int) (*entities.UserBook, error)
	SetReadingDates(ctx context.Context, ownerID uint, bookID string, started, finished *time.Time) (*entities.UserBook, error)
	List(ctx context.Context, ownerID uint, status entities.ReadStatus) ([]entities.UserBook, error)
	CountByStatus(ctx context.Context, ownerID uint) (map[entities.ReadStatus]int64, error)
}

type SnapshotStore interface {
	GetMany(ctx context.Context, catalogIDs []string) (map[string]entities.BookSnapshot, error)
}

// SnapshotScheduler refreshes the stored catalog snapshot of a book in the
// background.
type SnapshotScheduler interface {
	ScheduleSnapshot(ctx context.Context, bookID string) error
}

// ShelfBook is one shelf member with whatever catalog metadata is stored for it.
type ShelfBook struct {
	BookID   string
	Snapshot *entities.BookSnapshot
}

type Options struct {
	MaxOwners int
	Snapshots SnapshotStore
	Scheduler SnapshotScheduler
}

type Service struct {
	shelves   ShelfStore
	states    StateStore
	snapshots SnapshotStore
	scheduler SnapshotScheduler
	bus       *events.Bus

	mu     sync.Mutex
	owners *lru.Cache[uint, *ownerCache]
}

// NewService wires the stores to a bus. Pass a nil bus to get a private one.
func NewService(shelfStore ShelfStore, stateStore StateStore, bus *events.Bus, opts Options) (*Service, error) {
	if bus == nil {
		bus = events.NewBus()
	}
	maxOwners := opts.MaxOwners
	if maxOwners <= 0 {
		maxOwners = DefaultMaxOwners
	}

	owners, err := lru.NewWithEvict(maxOwners, func(_ uint, oc *ownerCache) {
		oc.close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create owner cache: %w", err)
	}

	return &Service{
		shelves:   shelfStore,
		states:    stateStore,
		snapshots: opts.Snapshots,
		scheduler: opts.Scheduler,
		bus:       bus,
		owners:    owners,
	}, nil
}

// Bus returns the bus writes are published on.
func (s *Service) Bus() *events.Bus {
	return s.bus
}

// Cache returns the owner's cache, creating and subscribing it if needed.
func (s *Service) Cache(ownerID uint) *querycache.Cache {
	return s.ownerCache(ownerID).cache
}

// EndSession drops the owner's cache and its subscription.
func (s *Service) EndSession(ownerID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners.Remove(ownerID)
}

// ActiveOwners returns how many owner caches are held.
func (s *Service) ActiveOwners() int {
	return s.owners.Len()
}

func (s *Service) ownerCache(ownerID uint) *ownerCache {
	s.mu.Lock()
	defer s.mu.Unlock()

	if oc, ok := s.owners.Get(ownerID); ok {
		return oc
	}
	oc := newOwnerCache(ownerID, s.bus)
	s.owners.Add(ownerID, oc)
	return oc
}

func (s *Service) publish(e events.Event) {
	s.bus.Publish(e)
}

// Shelves

func (s *Service) ListShelves(ctx context.Context, ownerID uint) ([]entities.Shelf, error) {
	return querycache.Get(ctx, s.Cache(ownerID), querycache.Key(KindShelves, ownerID),
		func(ctx context.Context) ([]entities.Shelf, error) {
			return s.shelves.ListShelves(ctx, ownerID)
		})
}

// GetShelf finds one of the owner's shelves in the cached shelf list.
func (s *Service) GetShelf(ctx context.Context, ownerID, shelfID uint) (*entities.Shelf, error) {
	list, err := s.ListShelves(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == shelfID {
			shelf := list[i]
			return &shelf, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *Service) CreateShelf(ctx context.Context, ownerID uint, name string) (*entities.Shelf, error) {
	name, err := shelves.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	shelf, err := s.shelves.CreateShelf(ctx, ownerID, name)
	if err != nil {
		return nil, err
	}
	s.publish(events.Event{Kind: events.ShelfCreated, OwnerID: ownerID, ShelfID: shelf.ID})
	return shelf, nil
}

func (s *Service) RenameShelf(ctx context.Context, ownerID, shelfID uint, name string) (*entities.Shelf, error) {
	name, err := shelves.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	shelf, err := s.shelves.RenameShelf(ctx, ownerID, shelfID, name)
	if err != nil {
		return nil, err
	}
	s.publish(events.Event{Kind: events.ShelfRenamed, OwnerID: ownerID, ShelfID: shelfID})
	return shelf, nil
}

func (s *Service) DeleteShelf(ctx context.Context, ownerID, shelfID uint) error {
	if err := s.shelves.DeleteShelf(ctx, ownerID, shelfID); err != nil {
		return err
	}
	s.publish(events.Event{Kind: events.ShelfDeleted, OwnerID: ownerID, ShelfID: shelfID})
	return nil
}

func (s *Service) ListMembers(ctx context.Context, ownerID, shelfID uint) ([]string, error) {
	return querycache.Get(ctx, s.Cache(ownerID), querycache.Key(KindMembers, ownerID, shelfID),
		func(ctx context.Context) ([]string, error) {
			return s.shelves.ListMembers(ctx, ownerID, shelfID)
		})
}

// ShelfBooks lists a shelf's members joined with their stored snapshots.
func (s *Service) ShelfBooks(ctx context.Context, ownerID, shelfID uint) ([]ShelfBook, error) {
	ids, err := s.ListMembers(ctx, ownerID, shelfID)
	if err != nil {
		return nil, err
	}

	var stored map[string]entities.BookSnapshot
	if s.snapshots != nil && len(ids) > 0 {
		stored, err = s.snapshots.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	books := make([]ShelfBook, 0, len(ids))
	for _, id := range ids {
		book := ShelfBook{BookID: id}
		if snap, ok := stored[id]; ok {
			book.Snapshot = &snap
		}
		books = append(books, book)
	}
	return books, nil
}

// AddMember puts a book on a shelf and schedules a snapshot refresh.
func (s *Service) AddMember(ctx context.Context, ownerID, shelfID uint, bookID string) (*entities.ShelfMembership, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, entities.ErrEmptyBookID
	}
	membership, err := s.shelves.AddMember(ctx, ownerID, shelfID, bookID)
	if err != nil {
		return nil, err
	}
	s.publish(events.Event{Kind: events.MemberAdded, OwnerID: ownerID, ShelfID: shelfID, BookID: bookID})

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleSnapshot(ctx, bookID); err != nil {
			log.Printf("[SYNC] failed to schedule snapshot for %s: %v", bookID, err)
		}
	}
	return membership, nil
}

func (s *Service) RemoveMember(ctx context.Context, ownerID, shelfID uint, bookID string) error {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return entities.ErrEmptyBookID
	}
	if err := s.shelves.RemoveMember(ctx, ownerID, shelfID, bookID); err != nil {
		return err
	}
	s.publish(events.Event{Kind: events.MemberRemoved, OwnerID: ownerID, ShelfID: shelfID, BookID: bookID})
	return nil
}

// ShelvesContaining returns the ids of the owner's shelves holding bookID.
func (s *Service) ShelvesContaining(ctx context.Context, ownerID uint, bookID string) ([]uint, error) {
	bookID = strings.TrimSpace(bookID)
	return querycache.Get(ctx, s.Cache(ownerID), querycache.Key(KindBookShelves, ownerID, bookID),
		func(ctx context.Context) ([]uint, error) {
			return s.shelves.ShelvesContaining(ctx, ownerID, bookID)
		})
}

// Reading state

// GetUserBookState returns entities.ErrNoState for untouched books. The
// absence itself is cached.
func (s *Service) GetUserBookState(ctx context.Context, ownerID uint, bookID string) (*entities.UserBook, error) {
	bookID = strings.TrimSpace(bookID)
	state, err := querycache.Get(ctx, s.Cache(ownerID), querycache.Key(KindUserBookState, ownerID, bookID),
		func(ctx context.Context) (*entities.UserBook, error) {
			state, err := s.states.Get(ctx, ownerID, bookID)
			if errors.Is(err, entities.ErrNoState) {
				return nil, nil
			}
			return state, err
		})
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, entities.ErrNoState
	}
	copied := *state
	return &copied, nil
}

func (s *Service) SetReadStatus(ctx context.Context, ownerID uint, bookID string, status entities.ReadStatus) (*entities.UserBook, error) {
	bookID = strings.TrimSpace(bookID)
	if !status.Valid() {
		return nil, entities.ErrInvalidReadStatus
	}
	return s.changeState(ownerID, bookID, func() (*entities.UserBook, error) {
		return s.states.SetReadStatus(ctx, ownerID, bookID, status)
	})
}

// ToggleReadStatus flips between READ and UNREAD based on the synchronized
// state. Any status other than READ becomes READ.
func (s *Service) ToggleReadStatus(ctx context.Context, ownerID uint, bookID string) (*entities.UserBook, error) {
	bookID = strings.TrimSpace(bookID)
	current := entities.DefaultReadStatus
	state, err := s.GetUserBookState(ctx, ownerID, bookID)
	switch {
	case err == nil:
		current = state.ReadStatus
	case !errors.Is(err, entities.ErrNoState):
		return nil, err
	}
	return s.SetReadStatus(ctx, ownerID, bookID, current.Toggled())
}

func (s *Service) SetNote(ctx context.Context, ownerID uint, bookID string, note string) (*entities.UserBook, error) {
	bookID = strings.TrimSpace(bookID)
	return s.changeState(ownerID, bookID, func() (*entities.UserBook, error) {
		return s.states.SetNote(ctx, ownerID, bookID, note)
	})
}

func (s *Service) SetRating(ctx context.Context, ownerID uint, bookID string, rating *int) (*entities.UserBook, error) {
	bookID = strings.TrimSpace(bookID)
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, entities.ErrInvalidRating
	}
	return s.changeState(ownerID, bookID, func() (*entities.UserBook, error) {
		return s.states.SetRating(ctx, ownerID, bookID, rating)
	})
}

func (s *Service) SetReadingDates(ctx context.Context, ownerID uint, bookID string, started, finished *time.Time) (*entities.UserBook, error) {
	bookID = strings.TrimSpace(bookID)
	if started != nil && finished != nil && finished.Before(*started) {
		return nil, entities.ErrInvalidDates
	}
	return s.changeState(ownerID, bookID, func() (*entities.UserBook, error) {
		return s.states.SetReadingDates(ctx, ownerID, bookID, started, finished)
	})
}

// changeState expects bookID already trimmed so the published key matches
// the one reads are cached under.
func (s *Service) changeState(ownerID uint, bookID string, write func() (*entities.UserBook, error)) (*entities.UserBook, error) {
	if bookID == "" {
		return nil, entities.ErrEmptyBookID
	}
	state, err := write()
	if err != nil {
		return nil, err
	}
	s.publish(events.Event{Kind: events.UserBookChanged, OwnerID: ownerID, BookID: bookID})
	return state, nil
}

// ListUserBooks lists reading states, optionally filtered by status.
func (s *Service) ListUserBooks(ctx context.Context, ownerID uint, status entities.ReadStatus) ([]entities.UserBook, error) {
	if status != "" && !status.Valid() {
		return nil, entities.ErrInvalidReadStatus
	}
	return querycache.Get(ctx, s.Cache(ownerID), querycache.Key(KindUserBooks, ownerID, string(status)),
		func(ctx context.Context) ([]entities.UserBook, error) {
			return s.states.List(ctx, ownerID, status)
		})
}

// ReadingStats counts the owner's books per status.
func (s *Service) ReadingStats(ctx context.Context, ownerID uint) (map[entities.ReadStatus]int64, error) {
	return querycache.Get(ctx, s.Cache(ownerID), querycache.Key(KindUserBooks, ownerID, "stats"),
		func(ctx context.Context) (map[entities.ReadStatus]int64, error) {
			return s.states.CountByStatus(ctx, ownerID)
		})
}
