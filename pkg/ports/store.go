package ports

import (
	"context"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// SessionStore defines the interface for persisting per-call sessions.
type SessionStore interface {
	// Save persists the session under its call ID.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves the session for a call ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, callID string) (*domain.Session, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, callID string) error

	// List returns the call IDs with an active session.
	List(ctx context.Context) ([]string, error)
}

// Pruner is implemented by stores that cannot expire entries on their own.
type Pruner interface {
	// Prune removes sessions not updated since the given instant and returns
	// their call IDs. Sessions for which busy reports true are kept.
	Prune(ctx context.Context, idleSince time.Time, busy func(callID string) bool) ([]string, error)
}
