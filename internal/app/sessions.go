package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"balanced-bowl/internal/metrics"
	"balanced-bowl/internal/planner"
)

// StateRepository loads and saves planner snapshots per user.
type StateRepository interface {
	Load(ctx context.Context, userID string) (planner.AppState, error)
	Save(ctx context.Context, userID string, state planner.AppState) error
}

type session struct {
	store    *planner.Store
	cancel   func()
	done     chan struct{}
	lastUsed time.Time
}

// Sessions owns one planner store per user. Stores are hydrated from the
// repository on first use and snapshotted back after every change.
type Sessions struct {
	mu       sync.Mutex
	repo     StateRepository
	metrics  *metrics.Collectors
	sessions map[string]*session
	closed   bool
}

// NewSessions creates a session registry. repo may be nil to keep state in memory only.
func NewSessions(repo StateRepository, c *metrics.Collectors) *Sessions {
	return &Sessions{
		repo:     repo,
		metrics:  c,
		sessions: make(map[string]*session),
	}
}

// Store returns the planner store of a user, loading it if needed.
func (s *Sessions) Store(ctx context.Context, userID string) (*planner.Store, error) {
	if userID == "" {
		return nil, fmt.Errorf("failed to open planner session: empty user ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("failed to open planner session: sessions closed")
	}
	if sess, ok := s.sessions[userID]; ok {
		sess.lastUsed = time.Now()
		return sess.store, nil
	}

	initial := planner.AppState{}
	if s.repo != nil {
		loaded, err := s.repo.Load(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to open planner session: %w", err)
		}
		initial = loaded
	}

	sess := &session{store: planner.NewStore(initial), done: make(chan struct{}), lastUsed: time.Now()}
	updates, cancel := sess.store.Subscribe()
	sess.cancel = cancel
	go s.persist(userID, updates, sess.done)

	s.sessions[userID] = sess
	if s.metrics != nil {
		s.metrics.Sessions.Set(float64(len(s.sessions)))
	}
	slog.Debug("Planner session opened", "user_id", userID)
	return sess.store, nil
}

// persist saves every published state until updates is closed.
func (s *Sessions) persist(userID string, updates <-chan planner.AppState, done chan<- struct{}) {
	defer close(done)
	for state := range updates {
		if s.repo == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Save(ctx, userID, state); err != nil {
			slog.Error("Failed to save planner state", "user_id", userID, "error", err)
		}
		cancel()
	}
}

// State returns a copy of a user's planner state.
func (s *Sessions) State(ctx context.Context, userID string) (planner.AppState, error) {
	store, err := s.Store(ctx, userID)
	if err != nil {
		return planner.AppState{}, err
	}
	return store.State(), nil
}

// Dispatch applies an action to a user's planner and returns the new state.
func (s *Sessions) Dispatch(ctx context.Context, userID string, action planner.Action) (planner.AppState, error) {
	state, _, err := s.Update(ctx, userID, action)
	return state, err
}

// Update applies an action and reports whether it changed the user's state.
func (s *Sessions) Update(ctx context.Context, userID string, action planner.Action) (planner.AppState, bool, error) {
	store, err := s.Store(ctx, userID)
	if err != nil {
		return planner.AppState{}, false, err
	}
	if s.metrics != nil {
		s.metrics.Dispatches.WithLabelValues(ActionName(action)).Inc()
	}
	state, changed := store.Update(action)
	return state, changed, nil
}

// Len is the number of sessions held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops the sessions last used before the given time, waiting for
// their final snapshots. An evicted user is reloaded from the repository on
// next use. It returns the number of sessions evicted.
func (s *Sessions) EvictIdle(before time.Time) int {
	s.mu.Lock()
	var idle []*session
	for userID, sess := range s.sessions {
		if sess.lastUsed.Before(before) {
			idle = append(idle, sess)
			delete(s.sessions, userID)
		}
	}
	if s.metrics != nil {
		s.metrics.Sessions.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.cancel()
		<-sess.done
	}
	if len(idle) > 0 {
		slog.Debug("Evicted idle planner sessions", "count", len(idle))
	}
	return len(idle)
}

// Close stops all sessions and waits for their final snapshots to be written.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.closed = true
	open := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range open {
		sess.cancel()
		<-sess.done
	}
	if s.metrics != nil {
		s.metrics.Sessions.Set(0)
	}
}

// ActionName is the type name of an action, e.g. "AssignMeal".
func ActionName(action planner.Action) string {
	if action == nil {
		return "nil"
	}
	name := fmt.Sprintf("%T", action)
	return name[strings.LastIndex(name, ".")+1:]
}
