// Package store provides a reducer-driven state container that satisfies
// the cascade.Store contract. State transitions go through Dispatch; the
// container notifies its listeners synchronously, in registration order,
// after every dispatch.
package store

import "sync"

// Reducer computes the next state from the current state and an action.
// It must be pure: no side effects, no mutation of the current state.
type Reducer[S, A any] func(state S, action A) S

// Store holds a single state value of type S, advanced by actions of
// type A. Reads are safe from any goroutine; Dispatch and listener
// management follow the single-threaded cooperative model of the
// subscription tree they drive.
type Store[S, A any] struct {
	mu      sync.RWMutex
	reducer Reducer[S, A]
	state   S

	listeners   []*entry
	nextID      uint64
	dispatching bool
}

// entry pairs a listener callback with a stable identity so unsubscribe
// can remove it without disturbing registration order.
type entry struct {
	id uint64
	fn func()
}

// New creates a store with the given reducer and initial state.
func New[S, A any](reducer Reducer[S, A], initial S) *Store[S, A] {
	return &Store[S, A]{
		reducer: reducer,
		state:   initial,
		nextID:  1,
	}
}

// State returns the current state.
func (s *Store[S, A]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// GetState returns the current state as any, satisfying cascade.Store.
func (s *Store[S, A]) GetState() any {
	return s.State()
}

// Dispatch runs the reducer and notifies every listener once, in
// registration order, on the calling goroutine. Dispatching from inside
// a listener panics: a notification pass observes exactly one state
// transition.
func (s *Store[S, A]) Dispatch(action A) {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		panic("store: Dispatch called during a notification pass")
	}
	s.dispatching = true
	s.state = s.reducer(s.state, action)

	// Copy before notify so listeners can subscribe or unsubscribe
	// without invalidating this pass.
	snapshot := make([]*entry, len(s.listeners))
	copy(snapshot, s.listeners)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.dispatching = false
		s.mu.Unlock()
	}()

	for _, e := range snapshot {
		e.fn()
	}
}

// Subscribe registers fn to run after every dispatch. The returned
// function removes the listener and is safe to call more than once.
func (s *Store[S, A]) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	e := &entry{id: s.nextID, fn: fn}
	s.nextID++
	s.listeners = append(s.listeners, e)
	s.mu.Unlock()

	removed := false
	return func() {
		if removed {
			return
		}
		removed = true

		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.listeners {
			if existing.id == e.id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount reports the number of registered listeners.
func (s *Store[S, A]) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}
