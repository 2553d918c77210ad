package dialogue

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/language"
	"github.com/aretw0/parley/pkg/ports"
)

// Engine drives one dialogue turn against a generation backend.
type Engine struct {
	generator  ports.Generator
	maxTokens  int64
	maxHistory int
	logger     *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithMaxTokens overrides the reply length cap.
func WithMaxTokens(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine bound to a generator.
func NewEngine(generator ports.Generator, opts ...Option) *Engine {
	e := &Engine{
		generator:  generator,
		maxTokens:  domain.DefaultMaxTokens,
		maxHistory: domain.MaxHistory,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Provider returns the generator's name.
func (e *Engine) Provider() string {
	return e.generator.Name()
}

// Turn appends the utterance, generates a reply, appends it, and bounds the
// history. The caller must hold the session's critical section.
// On failure the user turn stays in the history and a *domain.BackendError is returned.
func (e *Engine) Turn(ctx context.Context, session *domain.Session, entry language.Entry, utterance string) (string, error) {
	session.Append(domain.RoleUser, utterance)

	history := make([]domain.Turn, len(session.History))
	copy(history, session.History)

	e.logger.Debug("Calling generation backend",
		"call_id", session.CallID,
		"language", entry.Key,
		"history_len", len(history),
		"utterance", preview(utterance),
	)

	reply, err := e.generator.Generate(ctx, ports.GenerateRequest{
		Instructions: entry.Instructions,
		History:      history,
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		session.TrimHistory(e.maxHistory)
		return "", e.backendError(ctx, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		session.TrimHistory(e.maxHistory)
		return "", domain.NewBackendError(e.generator.Name(), domain.BackendMalformed, errEmptyReply)
	}

	session.Append(domain.RoleAssistant, reply)
	session.TrimHistory(e.maxHistory)

	e.logger.Debug("Generation backend responded",
		"call_id", session.CallID,
		"reply", preview(reply),
	)
	return reply, nil
}

func (e *Engine) backendError(ctx context.Context, err error) error {
	if be, ok := domain.AsBackendError(err); ok {
		return be
	}
	return domain.NewBackendError(e.generator.Name(), Classify(ctx, err), err)
}

func preview(s string) string {
	const max = 50
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
