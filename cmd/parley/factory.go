package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/pkg/adapters/anthropic"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/adapters/openai"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/dialogue/dialoguetest"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/language"
	"github.com/aretw0/parley/pkg/persistence/middleware"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/registry"
	"github.com/aretw0/parley/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// components groups what the commands build from a Config.
type components struct {
	store   ports.SessionStore
	locker  ports.DistributedLocker
	catalog *language.Catalog
	close   func() error
}

func buildStore(ctx context.Context, cfg config.Config) (*components, error) {
	c := &components{close: func() error { return nil }}

	c.catalog = language.Default()
	if cfg.LanguagesFile != "" {
		catalog, err := language.LoadOverrides(cfg.LanguagesFile, c.catalog)
		if err != nil {
			return nil, err
		}
		c.catalog = catalog
	}

	switch cfg.Store.Driver {
	case config.DriverRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		prefix := cfg.Store.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		store := redis.NewFromClient(client,
			redis.WithTTL(cfg.Store.IdleTimeout),
			redis.WithPrefix(prefix),
		)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Store.RedisAddr, err)
		}
		c.store = store
		c.locker = redis.NewLocker(client, prefix)
		c.close = store.Close
	default:
		c.store = memory.NewStore()
	}

	if cfg.Store.EncryptionKey != "" {
		mw, err := encryption(cfg.Store)
		if err != nil {
			_ = c.close()
			return nil, err
		}
		c.store = middleware.Chain(c.store, mw)
	}
	return c, nil
}

func encryption(cfg config.Store) (middleware.Middleware, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption_key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, encoded := range cfg.PreviousKeys {
		key, err := middleware.ParseKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid previous_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(enc), nil
}

// providers registers every generation backend the binary ships with.
func providers() *registry.Registry {
	r := registry.NewRegistry()
	r.Register(config.ProviderAnthropic, func(s registry.Settings) ports.Generator {
		return anthropic.New(func(o *anthropic.Options) {
			o.APIKey = s.APIKey
			o.MaxTokens = s.MaxTokens
			if s.Model != "" {
				o.Model = s.Model
			}
		})
	})
	r.Register(config.ProviderOpenAI, func(s registry.Settings) ports.Generator {
		return openai.New(func(o *openai.Options) {
			o.APIKey = s.APIKey
			o.MaxCompletionTokens = s.MaxTokens
			if s.Model != "" {
				o.Model = s.Model
			}
		})
	})
	r.Register(config.ProviderFake, func(registry.Settings) ports.Generator {
		return dialoguetest.New()
	})
	return r
}

func buildGenerator(cfg config.Config) (ports.Generator, error) {
	return providers().Build(cfg.Backend.Provider, registry.Settings{
		APIKey:    cfg.Backend.APIKey,
		Model:     cfg.Backend.Model,
		MaxTokens: cfg.Backend.MaxTokens,
	})
}

func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*parley.Service, func() error, error) {
	gen, err := buildGenerator(cfg)
	if err != nil {
		return nil, nil, err
	}
	c, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []parley.Option{
		parley.WithStore(c.store),
		parley.WithCatalog(c.catalog),
		parley.WithGenerator(gen),
		parley.WithMaxTokens(cfg.Backend.MaxTokens),
		parley.WithLogger(logger),
		parley.WithLifecycleHooks(hooks),
	}
	if c.locker != nil {
		opts = append(opts,
			parley.WithLocker(c.locker),
			parley.WithLockTTL(session.LockTTLFor(cfg.Backend.Timeout)),
		)
	}
	if cfg.Gateway.SingleLanguage != "" {
		opts = append(opts, parley.WithSingleLanguage(domain.LocaleKey(cfg.Gateway.SingleLanguage)))
	}

	svc, err := parley.New(opts...)
	if err != nil {
		_ = c.close()
		return nil, nil, err
	}
	return svc, c.close, nil
}
