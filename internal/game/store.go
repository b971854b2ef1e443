package game

import (
	"sync"

	"github.com/tatianab/dungeon-crawler/internal/models"
)

// Store owns the canonical GameState. Dispatch applies one action at a time,
// so no reader ever sees a partially applied action.
//
// Snapshots share slices and maps with the store. Treat them as read-only.
type Store struct {
	mu        sync.Mutex
	reducer   *Reducer
	state     models.GameState
	listeners map[int]func(models.GameState)
	nextID    int
}

// NewStore returns a store holding the reducer's initial state.
func NewStore(r *Reducer) *Store {
	return &Store{
		reducer:   r,
		state:     r.InitialState(),
		listeners: make(map[int]func(models.GameState)),
	}
}

// Reducer returns the reducer behind the store.
func (s *Store) Reducer() *Reducer {
	return s.reducer
}

// Dispatch applies a and returns the resulting state. Listeners are called
// after the store lock is released.
func (s *Store) Dispatch(a Action) models.GameState {
	s.mu.Lock()
	s.state = s.reducer.Apply(s.state, a)
	next := s.state
	listeners := make([]func(models.GameState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// Snapshot returns the current state.
func (s *Store) Snapshot() models.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every state produced by Dispatch. The
// returned func removes it.
func (s *Store) Subscribe(fn func(models.GameState)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
