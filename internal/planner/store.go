package planner

import (
	"sync"
	"time"
)

// Store holds one planner state and serializes changes to it.
// Dispatches are applied in the order they acquire the store, one at a time.
type Store struct {
	mu     sync.Mutex
	state  AppState
	nextID func() int64

	subs    map[int]chan AppState
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the generator used for custom grocery item IDs.
func WithIDGenerator(gen func() int64) Option {
	return func(s *Store) {
		s.nextID = gen
	}
}

// NewStore creates a Store holding a copy of initial.
func NewStore(initial AppState, opts ...Option) *Store {
	s := &Store{
		state:  initial.Clone(),
		nextID: newClockIDs(),
		subs:   make(map[int]chan AppState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies action and returns the resulting state.
// Subscribers are notified only when the state changed.
func (s *Store) Dispatch(action Action) AppState {
	state, _ := s.Update(action)
	return state
}

// Update is Dispatch that also reports whether the action changed the state.
func (s *Store) Update(action Action) (AppState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if custom, ok := action.(AddCustomGroceryItem); ok && custom.ID == 0 {
		custom.ID = s.nextID()
		action = custom
	}

	next, changed := transition(s.state, action)
	if changed {
		s.state = next
		s.publish()
	}
	return s.state.Clone(), changed
}

// State returns a copy of the current state.
func (s *Store) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe returns a channel that receives the state after every change.
// A slow reader only sees the newest state; Dispatch never waits on it.
// Calling cancel closes the channel.
func (s *Store) Subscribe() (<-chan AppState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan AppState, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// publish must be called with mu held.
func (s *Store) publish() {
	for _, ch := range s.subs {
		snapshot := s.state.Clone()
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// newClockIDs returns a generator of millisecond timestamps that never repeats a value.
func newClockIDs() func() int64 {
	var mu sync.Mutex
	var last int64
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		id := time.Now().UnixMilli()
		if id <= last {
			id = last + 1
		}
		last = id
		return id
	}
}
