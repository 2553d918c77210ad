package middleware_test

import (
	"context"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// MockStore is a simple in-memory store for testing middlewares.
type MockStore struct {
	mu   sync.Mutex
	data map[string]*domain.Session
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.Session)}
}

func (m *MockStore) Save(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.CallID] = s.Snapshot()
	return nil
}

func (m *MockStore) Load(ctx context.Context, callID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[callID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Snapshot(), nil
}

func (m *MockStore) Delete(ctx context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, callID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}
