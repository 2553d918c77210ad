package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// MockStore structure
type MockStore struct{}

func (m *MockStore) Save(ctx context.Context, s *domain.Session) error { return nil }
func (m *MockStore) Load(ctx context.Context, callID string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}
func (m *MockStore) Delete(ctx context.Context, callID string) error { return nil }
func (m *MockStore) List(ctx context.Context) ([]string, error)      { return nil, nil }

type countingLocker struct {
	locked, unlocked int
}

func (c *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	c.locked++
	return func(ctx context.Context) error {
		c.unlocked++
		return nil
	}, nil
}

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(&MockStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("CA-%d", i)
		_, _ = mgr.CreateOrReset(ctx, id, domain.LocaleEnglish)
		_ = mgr.Remove(ctx, id)
	}

	lockCount := len(mgr.locks)
	t.Logf("Sessions Created: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Remove", lockCount)
	}
}

func TestManager_DistributedLockPaired(t *testing.T) {
	locker := &countingLocker{}
	mgr := NewManager(&MockStore{}, WithLocker(locker))
	ctx := context.Background()

	_, _, _ = mgr.Get(ctx, "CA1")
	_ = mgr.Remove(ctx, "CA1")

	if locker.locked != 2 || locker.unlocked != 2 {
		t.Errorf("expected 2 paired lock/unlock calls, got %d/%d", locker.locked, locker.unlocked)
	}
}
