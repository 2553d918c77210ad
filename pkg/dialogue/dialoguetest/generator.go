// Package dialoguetest provides a scripted ports.Generator for tests and the
// offline simulate command.
package dialoguetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Generator records every request and answers from a script.
// Safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	requests []ports.GenerateRequest
	replies  map[string]string
	err      error

	// Reply, when set, computes the answer for requests without a scripted reply.
	Reply func(req ports.GenerateRequest) (string, error)
}

// New returns a Generator that echoes the last utterance.
func New() *Generator {
	return &Generator{replies: make(map[string]string)}
}

// Name implements ports.Generator.
func (g *Generator) Name() string { return "fake" }

// AddReply registers a canned reply for an utterance.
func (g *Generator) AddReply(utterance, reply string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[utterance] = reply
}

// FailWith makes every following call fail with err. Pass nil to recover.
func (g *Generator) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Generate implements ports.Generator.
func (g *Generator) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	history := make([]domain.Turn, len(req.History))
	copy(history, req.History)
	req.History = history

	g.mu.Lock()
	g.requests = append(g.requests, req)
	err := g.err
	var last string
	if n := len(history); n > 0 {
		last = history[n-1].Content
	}
	reply, scripted := g.replies[last]
	g.mu.Unlock()

	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if scripted {
		return reply, nil
	}
	if g.Reply != nil {
		return g.Reply(req)
	}
	return fmt.Sprintf("You said: %s", last), nil
}

// Requests returns a copy of all recorded requests.
func (g *Generator) Requests() []ports.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ports.GenerateRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

// Calls returns the number of Generate calls.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}
