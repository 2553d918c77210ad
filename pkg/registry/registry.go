// Package registry maps generation provider names to constructors so the
// binary can select a backend from configuration.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/parley/pkg/ports"
)

// Settings are the provider-neutral knobs passed to every factory.
type Settings struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// Factory builds a generator from settings.
type Factory func(s Settings) ports.Generator

// Registry manages the available providers.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a provider to the registry.
// If a provider with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = fn
}

// Build looks up a provider by name and constructs its generator.
// Returns an error if the provider is not found.
func (r *Registry) Build(name string, s Settings) (ports.Generator, error) {
	r.mu.RLock()
	fn, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return fn(s), nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
