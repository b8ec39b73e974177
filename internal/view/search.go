// Package view holds the presentation rules shared by the HTML and JSON
// handlers: last-query-wins search tracking, in-flight mutation guards and
// the view models templates render.
package view

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Ticket identifies one search submission.
type Ticket struct {
	Session string
	Seq     uint64
	Query   string
}

// SearchTracker remembers the latest search per session so a slow response
// to an older query is discarded instead of replacing newer results.
type SearchTracker struct {
	mu       sync.Mutex
	seq      uint64
	sessions *lru.Cache[string, uint64]
}

func NewSearchTracker(maxSessions int) (*SearchTracker, error) {
	if maxSessions <= 0 {
		maxSessions = 1024
	}
	sessions, err := lru.New[string, uint64](maxSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tracker: %w", err)
	}
	return &SearchTracker{sessions: sessions}, nil
}

// Begin records query as the session's latest search.
func (t *SearchTracker) Begin(session, query string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	t.sessions.Add(session, t.seq)
	return Ticket{Session: session, Seq: t.seq, Query: query}
}

// Current reports whether ticket is still the session's latest search. A
// session that was evicted has no newer search, so its ticket stays current.
func (t *SearchTracker) Current(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	latest, ok := t.sessions.Peek(ticket.Session)
	return !ok || latest == ticket.Seq
}
