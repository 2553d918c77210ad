package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
// It must exceed the slowest backend turn.
const DefaultLockTTL = 30 * time.Second

// lockMargin covers the store round trips around the backend call.
const lockMargin = 10 * time.Second

// LockTTLFor returns a distributed lock TTL that outlives a turn bounded by
// turnTimeout, never below DefaultLockTTL.
func LockTTLFor(turnTimeout time.Duration) time.Duration {
	if ttl := turnTimeout + lockMargin; ttl > DefaultLockTTL {
		return ttl
	}
	return DefaultLockTTL
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// Each call ID gets its own critical section; the global lock only guards the
// lock table and is never held while a callback runs.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	onEvict func(ctx context.Context, callID string)
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL. Non-positive values keep the default.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithEvictionHook registers a callback invoked for every idle session evicted.
func WithEvictionHook(fn func(ctx context.Context, callID string)) Option {
	return func(m *Manager) {
		m.onEvict = fn
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(callID) after unlocking.
func (m *Manager) acquire(callID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[callID]
	if !exists {
		entry = &lockEntry{}
		m.locks[callID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[callID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, callID)
	}
}

// Get returns the session for a call. A missing session is reported as
// ok == false with a nil error: new and expired calls are expected.
func (m *Manager) Get(ctx context.Context, callID string) (*domain.Session, bool, error) {
	var session *domain.Session
	err := m.WithLock(ctx, callID, func(ctx context.Context) error {
		var err error
		session, err = m.load(ctx, callID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return session, session != nil, nil
}

// CreateOrReset binds a fresh session with empty history to the call,
// replacing any previous one.
func (m *Manager) CreateOrReset(ctx context.Context, callID string, lang domain.LocaleKey) (*domain.Session, error) {
	session := domain.NewSession(callID, lang)
	err := m.WithLock(ctx, callID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, session); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session.Snapshot(), nil
}

// Remove deletes the session. Removing a missing session is a no-op.
func (m *Manager) Remove(ctx context.Context, callID string) error {
	return m.WithLock(ctx, callID, func(ctx context.Context) error {
		return m.store.Delete(ctx, callID)
	})
}

// Update runs fn on the call's session inside its critical section and
// persists the result, even when fn fails, so partial mutations survive.
// found is false (and fn is not called) when the call has no session.
func (m *Manager) Update(ctx context.Context, callID string, fn func(context.Context, *domain.Session) error) (bool, error) {
	found := false
	err := m.WithLock(ctx, callID, func(ctx context.Context) error {
		session, err := m.load(ctx, callID)
		if err != nil {
			return err
		}
		if session == nil {
			return nil
		}
		found = true

		fnErr := fn(ctx, session)
		if err := m.store.Save(ctx, session); err != nil {
			return errors.Join(fnErr, fmt.Errorf("failed to save session: %w", err))
		}
		return fnErr
	})
	return found, err
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// EvictIdle removes sessions not updated within idle. Calls with a turn in
// flight on this instance are skipped. Stores that expire entries on their
// own (no ports.Pruner) are left alone.
func (m *Manager) EvictIdle(ctx context.Context, idle time.Duration) (int, error) {
	pruner, ok := m.store.(ports.Pruner)
	if !ok || idle <= 0 {
		return 0, nil
	}

	evicted, err := pruner.Prune(ctx, time.Now().Add(-idle), m.busy)
	if err != nil {
		return 0, fmt.Errorf("failed to prune idle sessions: %w", err)
	}
	for _, callID := range evicted {
		m.logger.Info("Evicted idle session", "call_id", callID, "idle", idle)
		if m.onEvict != nil {
			m.onEvict(ctx, callID)
		}
	}
	return len(evicted), nil
}

// RunJanitor calls EvictIdle every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.EvictIdle(ctx, idle); err != nil {
				m.logger.Warn("Idle eviction failed", "err", err)
			}
		}
	}
}

// WithLock executes a function while holding the lock for the call.
func (m *Manager) WithLock(ctx context.Context, callID string, fn func(context.Context) error) error {
	entry := m.acquire(callID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(callID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, callID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"call_id", callID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// busy reports whether the call's critical section is held or awaited.
func (m *Manager) busy(callID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[callID]
	return ok
}

func (m *Manager) load(ctx context.Context, callID string) (*domain.Session, error) {
	session, err := m.store.Load(ctx, callID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}
