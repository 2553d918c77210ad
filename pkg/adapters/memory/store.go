package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
	now  func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]*domain.Session),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists a copy of the session in memory.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := session.Snapshot()
	copied.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.CallID] = copied
	return nil
}

// Load retrieves a copy of the session from memory.
func (s *Store) Load(ctx context.Context, callID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[callID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// Copy on read so the caller can't mutate store state directly by pointer
	return session.Snapshot(), nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, callID)
	return nil
}

// List returns active calls.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calls := make([]string, 0, len(s.data))
	for id := range s.data {
		calls = append(calls, id)
	}
	return calls, nil
}

// Prune removes sessions whose last update is before idleSince, skipping
// the ones busy reports as in use. busy may be nil.
func (s *Store) Prune(ctx context.Context, idleSince time.Time, busy func(callID string) bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, session := range s.data {
		if busy != nil && busy(id) {
			continue
		}
		if session.UpdatedAt.Before(idleSince) {
			delete(s.data, id)
			evicted = append(evicted, id)
		}
	}
	return evicted, nil
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
