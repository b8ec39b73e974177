package library

import (
	"github.com/mrlokans/bookshelf/internal/events"
	"github.com/mrlokans/bookshelf/internal/querycache"
)

// ownerCache is one owner's query cache plus its bus subscription.
type ownerCache struct {
	ownerID     uint
	cache       *querycache.Cache
	unsubscribe func()
}

func newOwnerCache(ownerID uint, bus *events.Bus) *ownerCache {
	oc := &ownerCache{
		ownerID: ownerID,
		cache:   querycache.New(),
	}
	oc.unsubscribe = bus.Subscribe(oc.handle)
	return oc
}

func (oc *ownerCache) close() {
	oc.unsubscribe()
	oc.cache.Reset()
}

// handle maps a write to the keys it makes stale.
func (oc *ownerCache) handle(e events.Event) {
	if e.OwnerID != oc.ownerID {
		return
	}
	owner := e.OwnerID

	switch e.Kind {
	case events.ShelfCreated, events.ShelfRenamed:
		oc.cache.Invalidate(querycache.Key(KindShelves, owner))
	case events.ShelfDeleted:
		oc.cache.Invalidate(
			querycache.Key(KindShelves, owner),
			querycache.Key(KindMembers, owner, e.ShelfID),
		)
		oc.cache.InvalidatePrefix(querycache.Key(KindBookShelves, owner) + ":")
	case events.MemberAdded, events.MemberRemoved:
		oc.cache.Invalidate(
			querycache.Key(KindMembers, owner, e.ShelfID),
			querycache.Key(KindBookShelves, owner, e.BookID),
		)
	case events.UserBookChanged:
		oc.cache.Invalidate(querycache.Key(KindUserBookState, owner, e.BookID))
		oc.cache.InvalidatePrefix(querycache.Key(KindUserBooks, owner) + ":")
	}
}
