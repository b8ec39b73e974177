package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(func(e Event) { got = append(got, e) })

	bus.Publish(Event{Kind: MemberAdded, OwnerID: 7, ShelfID: 12, BookID: "X1"})

	assert.Equal(t, []Event{{Kind: MemberAdded, OwnerID: 7, ShelfID: 12, BookID: "X1"}}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })
	other := 0
	bus.Subscribe(func(Event) { other++ })
	assert.Equal(t, 2, bus.Subscribers())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, bus.Subscribers())

	bus.Publish(Event{Kind: ShelfCreated, OwnerID: 1})
	assert.Zero(t, calls)
	assert.Equal(t, 1, other)
}

func TestBus_UnsubscribeFromHandler(t *testing.T) {
	bus := NewBus()

	var unsubscribe func()
	calls := 0
	unsubscribe = bus.Subscribe(func(Event) {
		calls++
		unsubscribe()
	})

	bus.Publish(Event{Kind: ShelfDeleted})
	bus.Publish(Event{Kind: ShelfDeleted})
	assert.Equal(t, 1, calls)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(Event{Kind: UserBookChanged, OwnerID: 1, BookID: "X1"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, count)
}

func TestEvent_String(t *testing.T) {
	e := Event{Kind: MemberRemoved, OwnerID: 3, ShelfID: 4, BookID: "B"}
	assert.Equal(t, `member_removed owner=3 shelf=4 book="B"`, e.String())
}
