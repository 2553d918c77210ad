package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// GenerateRequest is the normalized input to a generation backend.
type GenerateRequest struct {
	// Instructions is the locale's system prompt.
	Instructions string

	// History is the bounded conversation, ending with the latest user turn.
	History []domain.Turn

	// MaxTokens caps the reply length.
	MaxTokens int64
}

// Generator produces the assistant reply for a conversation.
// Implementations should return a *domain.BackendError on failure.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}
