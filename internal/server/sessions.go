package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/dungeon-crawler/internal/play"
)

// NewControllerFunc builds the controller behind a fresh session.
type NewControllerFunc func() (*play.Controller, error)

type session struct {
	ctrl     *play.Controller
	lastSeen time.Time
}

// Sessions keeps one controller per browser session and forgets sessions
// that have been idle for longer than the TTL.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	create   NewControllerFunc
	ttl      time.Duration
	now      func() time.Time
}

// NewSessions returns an empty session table. A zero ttl keeps sessions
// forever.
func NewSessions(create NewControllerFunc, ttl time.Duration) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		create:   create,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new session on the title screen.
func (m *Sessions) Create() (string, *play.Controller, error) {
	ctrl, err := m.create()
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = &session{ctrl: ctrl, lastSeen: m.now()}
	m.mu.Unlock()
	return id, ctrl, nil
}

// Get looks up a session and marks it as used.
func (m *Sessions) Get(id string) (*play.Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = m.now()
	return s.ctrl, true
}

// Touch marks a session as used without fetching it. It reports whether the
// session still exists.
func (m *Sessions) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastSeen = m.now()
	}
	return ok
}

// Len is the number of live sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops idle sessions and reports how many were removed.
func (m *Sessions) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (m *Sessions) Run(ctx context.Context) {
	if m.ttl <= 0 {
		return
	}
	interval := m.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Printf("server: evicted %d idle sessions", n)
			}
		}
	}
}
