package view

import (
	"fmt"
	"sync"
)

// Controls guarded against double submission.
const (
	ControlStatus = "status"
	ControlNote   = "note"
	ControlShelf  = "shelf"
	ControlRating = "rating"
	ControlDates  = "dates"
)

// PendingGuard admits one in-flight mutation per key.
type PendingGuard struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewPendingGuard() *PendingGuard {
	return &PendingGuard{pending: make(map[string]struct{})}
}

// PendingKey scopes a guard to one owner, control and book.
func PendingKey(ownerID uint, control, bookID string) string {
	return fmt.Sprintf("%d:%s:%s", ownerID, control, bookID)
}

// Acquire marks key as pending. ok is false when key is already pending;
// otherwise release must be called once the mutation settles.
func (g *PendingGuard) Acquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.pending[key]; busy {
		return nil, false
	}
	g.pending[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.pending, key)
			g.mu.Unlock()
		})
	}, true
}

// Pending reports whether key is currently held.
func (g *PendingGuard) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.pending[key]
	return busy
}
