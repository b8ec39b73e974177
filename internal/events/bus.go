// Package events delivers write notifications to the caches that depend on
// them. Delivery is synchronous: Publish returns after every handler ran.
package events

import (
	"fmt"
	"sync"
)

type Kind string

const (
	ShelfCreated    Kind = "shelf_created"
	ShelfRenamed    Kind = "shelf_renamed"
	ShelfDeleted    Kind = "shelf_deleted"
	MemberAdded     Kind = "member_added"
	MemberRemoved   Kind = "member_removed"
	UserBookChanged Kind = "user_book_changed"
)

// Event describes a successful write. ShelfID and BookID are set when the
// kind concerns them.
type Event struct {
	Kind    Kind
	OwnerID uint
	ShelfID uint
	BookID  string
}

func (e Event) String() string {
	return fmt.Sprintf("%s owner=%d shelf=%d book=%q", e.Kind, e.OwnerID, e.ShelfID, e.BookID)
}

type Handler func(Event)

type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish calls every current subscriber with e. Handlers must not publish.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
