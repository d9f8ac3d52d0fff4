package store

import (
	"slices"
	"sync"

	"bobemploi/internal/reducer"
)

// Reducer computes the next state. It must not mutate its input.
type Reducer func(s *reducer.State, in reducer.Intent) *reducer.State

// Listener is notified with the new state after every change.
type Listener func(s *reducer.State)

// Hook observes every dispatched intent with the state before and after it,
// whether or not the state changed.
type Hook func(in reducer.Intent, prev, next *reducer.State)

// Store is the single source of truth of the client. Dispatches are
// serialized and applied in order.
type Store struct {
	reduce Reducer
	hooks  []Hook

	mu    sync.Mutex
	state *reducer.State

	// notifyMu is taken before mu is released so listeners see states in
	// dispatch order without holding mu.
	notifyMu sync.Mutex

	subsMu         sync.Mutex
	subscribers    map[uint64]Listener
	nextSubscriber uint64
}

// New builds a store. A nil reducer defaults to reducer.Root and a nil initial
// state to reducer.Initial().
func New(reduce Reducer, initial *reducer.State, hooks ...Hook) *Store {
	if reduce == nil {
		reduce = reducer.Root
	}
	if initial == nil {
		initial = reducer.Initial()
	}
	return &Store{
		reduce:      reduce,
		hooks:       hooks,
		state:       initial,
		subscribers: map[uint64]Listener{},
	}
}

// GetState returns the current state. Callers must treat it as read-only.
func (s *Store) GetState() *reducer.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies the intent and returns the resulting state. Hooks run
// under the store lock. Listeners run after it is released, so they may read
// the state, and they still observe changes in dispatch order.
func (s *Store) Dispatch(in reducer.Intent) *reducer.State {
	s.mu.Lock()
	prev := s.state
	next := s.reduce(prev, in)
	if next == nil {
		next = prev
	}
	s.state = next
	for _, h := range s.hooks {
		h(in, prev, next)
	}
	if next == prev {
		s.mu.Unlock()
		return next
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, l := range s.listeners() {
		l(next)
	}
	return next
}

// Subscribe registers a listener. Call the returned function to stop
// receiving notifications. Listeners may call GetState but must not dispatch.
func (s *Store) Subscribe(l Listener) func() {
	s.subsMu.Lock()
	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = l
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subscribers, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) listeners() []Listener {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	out := make([]Listener, 0, len(s.subscribers))
	ids := make([]uint64, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		out = append(out, s.subscribers[id])
	}
	return out
}
