package parley

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/callflow"
	"github.com/aretw0/parley/pkg/dialogue"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/language"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

// Version is the release of this module.
const Version = "0.1.0"

// Service wires the catalog, session manager, dialogue engine and call
// flow controller around one store and one generation backend.
type Service struct {
	store      ports.SessionStore
	generator  ports.Generator
	catalog    *language.Catalog
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	maxTokens  int64
	single     domain.LocaleKey
	manager    *session.Manager
	engine     *dialogue.Engine
	controller *callflow.Controller
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithStore sets the session store (default: in-memory).
func WithStore(store ports.SessionStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithGenerator sets the generation backend. Required.
func WithGenerator(g ports.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

// WithCatalog replaces the built-in language catalog.
func WithCatalog(c *language.Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithLocker adds cross-process locking for shared stores.
func WithLocker(l ports.DistributedLocker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithLockTTL sets how long a distributed lock may outlive its holder.
// It must exceed the slowest turn; see session.LockTTLFor.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMaxTokens caps reply length.
func WithMaxTokens(n int64) Option {
	return func(s *Service) {
		s.maxTokens = n
	}
}

// WithSingleLanguage disables the language menu.
func WithSingleLanguage(key domain.LocaleKey) Option {
	return func(s *Service) {
		s.single = key
	}
}

// New assembles a Service.
func New(opts ...Option) (*Service, error) {
	s := &Service{maxTokens: domain.DefaultMaxTokens}
	for _, opt := range opts {
		opt(s)
	}

	if s.generator == nil {
		return nil, fmt.Errorf("a generation backend is required")
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}
	if s.catalog == nil {
		s.catalog = language.Default()
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.single != "" {
		if _, ok := s.catalog.Lookup(s.single); !ok {
			return nil, fmt.Errorf("single language %q is not in the catalog %v", s.single, s.catalog.Keys())
		}
	}

	managerOpts := []session.Option{
		session.WithLogger(s.logger),
		session.WithEvictionHook(s.onEvict),
	}
	if s.locker != nil {
		managerOpts = append(managerOpts,
			session.WithLocker(s.locker),
			session.WithLockTTL(s.lockTTL),
		)
	}
	s.manager = session.NewManager(s.store, managerOpts...)

	s.engine = dialogue.NewEngine(s.generator,
		dialogue.WithMaxTokens(s.maxTokens),
		dialogue.WithLogger(s.logger),
	)

	controllerOpts := []callflow.Option{
		callflow.WithHooks(s.hooks),
		callflow.WithLogger(s.logger),
	}
	if s.single != "" {
		controllerOpts = append(controllerOpts, callflow.WithSingleLanguage(s.single))
	}
	s.controller = callflow.NewController(s.manager, s.catalog, s.engine, controllerOpts...)

	return s, nil
}

func (s *Service) onEvict(ctx context.Context, callID string) {
	if s.hooks.OnSessionEnd == nil {
		return
	}
	s.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
		EventBase: domain.NewEventBase(domain.EventSessionEnd, callID, ""),
		Reason:    domain.EndIdle,
	})
}

// Controller returns the call flow controller.
func (s *Service) Controller() *callflow.Controller {
	return s.controller
}

// Sessions returns the session manager.
func (s *Service) Sessions() *session.Manager {
	return s.manager
}

// Catalog returns the language catalog.
func (s *Service) Catalog() *language.Catalog {
	return s.catalog
}

// Provider names the generation backend.
func (s *Service) Provider() string {
	return s.engine.Provider()
}

// ActiveSessions counts sessions in the store. Errors count as zero.
func (s *Service) ActiveSessions(ctx context.Context) int {
	ids, err := s.manager.List(ctx)
	if err != nil {
		s.logger.Warn("Failed to list sessions", "err", err)
		return 0
	}
	return len(ids)
}

// RunJanitor evicts idle sessions every interval until ctx is done.
// Stores with native expiry make this a no-op.
func (s *Service) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	s.manager.RunJanitor(ctx, interval, idle)
}
