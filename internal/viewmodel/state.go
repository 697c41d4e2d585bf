// Package viewmodel holds the per-screen state containers of the studio
// client. Each container loads its data through the data access layer once
// an identity is available, keeps {items, loading, err} behind a mutex, and
// exposes mutations that patch local state optimistically and revert it when
// the remote call fails.
package viewmodel

import (
	"slices"
	"sync"
)

// ListView is a copy of a list container's state.
type ListView[T any] struct {
	Items   []T
	Loading bool
	Err     error
}

// ListState is a mutex-guarded list keyed by id.
type ListState[T any] struct {
	mu      sync.RWMutex
	idOf    func(T) string
	items   []T
	loading bool
	err     error
	// gen increments on every wholesale replace so late loads can be dropped.
	gen uint64
}

// NewListState returns an empty list whose items are keyed by idOf.
func NewListState[T any](idOf func(T) string) *ListState[T] {
	return &ListState[T]{idOf: idOf}
}

// View returns a copy of the current state.
func (s *ListState[T]) View() ListView[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ListView[T]{Items: slices.Clone(s.items), Loading: s.loading, Err: s.err}
}

// Items returns a copy of the items.
func (s *ListState[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Get returns the item with id.
func (s *ListState[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// begin marks a load in flight and returns its generation.
func (s *ListState[T]) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.loading = true
	return s.gen
}

// finish ends the load started as gen. On success the list is replaced
// wholesale; on failure the last good items stay. A load superseded by a
// newer one is dropped.
func (s *ListState[T]) finish(gen uint64, items []T, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.loading = false
	s.err = err
	if err == nil {
		if items == nil {
			items = []T{}
		}
		s.items = items
	}
	return true
}

// reset empties the list, e.g. after sign-out.
func (s *ListState[T]) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.items, s.loading, s.err = nil, false, nil
}

func (s *ListState[T]) indexLocked(id string) int {
	return slices.IndexFunc(s.items, func(v T) bool { return s.idOf(v) == id })
}

// patch applies fn to the item with id and returns an undo that restores
// the item as it was. ok is false when the item is not in the list.
func (s *ListState[T]) patch(id string, fn func(*T)) (undo func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return func() {}, false
	}
	before := s.items[i]
	fn(&s.items[i])
	return func() { s.set(id, before) }, true
}

// remove drops the item with id and returns an undo that puts it back at its
// old position (or the end, if the list shrank meanwhile).
func (s *ListState[T]) remove(id string) (undo func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return func() {}, false
	}
	removed := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.indexLocked(id) >= 0 {
			return
		}
		s.items = slices.Insert(s.items, min(i, len(s.items)), removed)
	}, true
}

// set replaces the item with id, if present.
func (s *ListState[T]) set(id string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.items[i] = v
	}
}

// prepend inserts v at the head of the list.
func (s *ListState[T]) prepend(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Insert(s.items, 0, v)
}

// twoPhase runs an optimistic mutation: apply has already changed local
// state and returned undo; remote is the confirming call. On success commit
// receives the remote result; on failure undo runs and the error is returned.
func twoPhase[R any](undo func(), remote func() (R, error), commit func(R)) error {
	res, err := remote()
	if err != nil {
		undo()
		return err
	}
	if commit != nil {
		commit(res)
	}
	return nil
}
