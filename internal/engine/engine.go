// Package engine is the minimal single-threaded store the mount layer runs on:
// it owns the current state, threads every action through one reducer,
// notifies subscribers after each successful reduction and rejects re-entrant
// dispatch.
package engine

import (
	"errors"
	"fmt"
)

// ErrReentrantDispatch is returned when Dispatch is called while a reducer is
// still running.
var ErrReentrantDispatch = errors.New("engine: reducers may not dispatch actions")

// Reducer computes the next state. A non-nil error aborts the dispatch and
// leaves the committed state untouched.
type Reducer[S, A any] func(state S, action A) (S, error)

// Listener is notified after every committed dispatch.
type Listener func()

// Store holds state of type S reduced by actions of type A. It is not safe for
// concurrent use.
type Store[S, A any] struct {
	reducer     Reducer[S, A]
	state       S
	listeners   []subscription
	nextID      int
	dispatching bool
}

type subscription struct {
	id       int
	listener Listener
}

// New constructs a store with reducer and initial state. No action is
// dispatched; callers decide how to initialise.
func New[S, A any](reducer Reducer[S, A], initial S) (*Store[S, A], error) {
	if reducer == nil {
		return nil, fmt.Errorf("engine: reducer is required")
	}
	return &Store[S, A]{
		reducer: reducer,
		state:   initial,
	}, nil
}

// State returns the last committed state.
func (s *Store[S, A]) State() S {
	return s.state
}

// Dispatch reduces action against the current state and, on success, commits
// the result and notifies listeners in subscription order.
func (s *Store[S, A]) Dispatch(action A) error {
	return s.DispatchWith(action, nil)
}

// DispatchWith is Dispatch with a hook that runs once the new state is
// committed and before any listener is notified.
func (s *Store[S, A]) DispatchWith(action A, committed func(S)) error {
	if s.dispatching {
		return ErrReentrantDispatch
	}

	next, err := s.reduce(action)
	if err != nil {
		return err
	}
	s.state = next
	if committed != nil {
		committed(next)
	}

	listeners := make([]subscription, len(s.listeners))
	copy(listeners, s.listeners)
	for _, sub := range listeners {
		sub.listener()
	}
	return nil
}

func (s *Store[S, A]) reduce(action A) (S, error) {
	s.dispatching = true
	defer func() { s.dispatching = false }()
	return s.reducer(s.state, action)
}

// Subscribe registers listener and returns a function removing it. The
// returned function is idempotent.
func (s *Store[S, A]) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, listener: listener})
	return func() {
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Dispatching reports whether a reducer is currently running.
func (s *Store[S, A]) Dispatching() bool {
	return s.dispatching
}
