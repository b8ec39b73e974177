// Package querycache is a key-addressed read-through cache for durable state.
//
// Each key moves through Absent -> Loading -> Fresh -> Stale -> Loading.
// Concurrent reads of a key share one fetch. Invalidating a key while its
// fetch is running makes the fetched value land as Stale, so the next read
// fetches again. Failed fetches are never cached.
package querycache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

type State int

const (
	Absent State = iota
	Loading
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	}
	return "absent"
}

type entry struct {
	value    any
	valueGen uint64
	hasValue bool
	fresh    bool

	// generation changes on every invalidation; a fetch remembers the
	// generation it started under.
	generation uint64
	loading    bool
	loadingGen uint64
}

func (e *entry) state() State {
	switch {
	case e.loading:
		return Loading
	case !e.hasValue:
		return Absent
	case e.fresh:
		return Fresh
	}
	return Stale
}

// Cache is safe for concurrent use. The zero value is not usable; call New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	flights singleflight.Group
}

func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Key builds a cache key such as "members:7:12".
func Key(kind string, parts ...any) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Get returns the value for key, calling fetch when the key is not Fresh.
func Get[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	value, fresh, gen := c.begin(key)
	if fresh {
		typed, ok := value.(T)
		if !ok {
			return zero, fmt.Errorf("querycache: %s holds %T", key, value)
		}
		return typed, nil
	}

	flightKey := key + "#" + strconv.FormatUint(gen, 10)
	detached := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(flightKey, func() (any, error) {
		v, err := fetch(detached)
		c.complete(key, gen, v, err)
		return v, err
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, _ := res.Val.(T)
		return typed, nil
	}
}

// begin returns the cached value when Fresh; otherwise it marks the key as
// Loading and returns the generation the fetch belongs to.
func (c *Cache) begin(key string) (any, bool, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.seq++
		e = &entry{generation: c.seq}
		c.entries[key] = e
	}
	if e.state() == Fresh {
		return e.value, true, e.generation
	}
	e.loading = true
	e.loadingGen = e.generation
	return nil, false, e.generation
}

func (c *Cache) complete(key string, gen uint64, value any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		// Dropped by Reset while loading.
		return
	}
	if e.loading && e.loadingGen == gen {
		e.loading = false
	}

	if err == nil && (!e.hasValue || gen >= e.valueGen) {
		e.value = value
		e.valueGen = gen
		e.hasValue = true
		e.fresh = gen == e.generation
	}
	if !e.hasValue && !e.loading {
		delete(c.entries, key)
	}
}

// Invalidate marks keys Stale. Keys that are Loading will land as Stale.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		c.invalidateLocked(key)
	}
}

// InvalidatePrefix invalidates every key starting with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.invalidateLocked(key)
		}
	}
}

func (c *Cache) invalidateLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	c.seq++
	e.generation = c.seq
	e.fresh = false
	if !e.hasValue && !e.loading {
		delete(c.entries, key)
	}
}

// State reports the current state of key.
func (c *Cache) State(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.state()
	}
	return Absent
}

// Len returns the number of keys that are not Absent.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops every entry. Fetches still running are discarded when they finish.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}
