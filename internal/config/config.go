// Package config loads process-wide settings once at startup.
// Sources are applied in order: defaults, YAML file, environment, flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderFake      = "fake"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config is immutable once Load returns.
type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Backend Backend `yaml:"backend"`
	Store   Store   `yaml:"store"`
	Gateway Gateway `yaml:"gateway"`

	// LanguagesFile optionally overrides the built-in language catalog.
	LanguagesFile string `yaml:"languages_file"`
}

// Backend selects and tunes the generation provider.
type Backend struct {
	Provider  string        `yaml:"provider"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int64         `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Store selects the session store.
type Store struct {
	Driver          string        `yaml:"driver"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	Prefix          string        `yaml:"prefix"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`

	// EncryptionKey is a base64 AES-256 key. When set, turn content is
	// sealed before it reaches the store.
	EncryptionKey string `yaml:"encryption_key"`
	// PreviousKeys are still accepted for reading during key rotation.
	PreviousKeys []string `yaml:"previous_keys"`
}

// Gateway holds telephony webhook settings.
type Gateway struct {
	// BaseURL is the public URL the gateway calls back; used for absolute
	// action URLs and signature validation.
	BaseURL string `yaml:"base_url"`
	// AuthToken enables webhook signature validation when set.
	AuthToken string `yaml:"auth_token"`
	// SingleLanguage skips the language menu when set to a locale key.
	SingleLanguage string `yaml:"single_language"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:      "5000",
		LogLevel:  "info",
		LogFormat: "text",
		Backend: Backend{
			Provider:  ProviderAnthropic,
			MaxTokens: 300,
			Timeout:   20 * time.Second,
		},
		Store: Store{
			Driver:          DriverMemory,
			RedisAddr:       "localhost:6379",
			Prefix:          "parley:call:",
			IdleTimeout:     30 * time.Minute,
			JanitorInterval: time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the process environment. A missing file is not an error.
// The provider API key is not read here; call ResolveAPIKey once the
// provider is final.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PORT", &c.Port)
	str("PARLEY_LOG_LEVEL", &c.LogLevel)
	str("PARLEY_LOG_FORMAT", &c.LogFormat)

	str("PARLEY_BACKEND", &c.Backend.Provider)
	str("PARLEY_MODEL", &c.Backend.Model)
	dur("PARLEY_BACKEND_TIMEOUT", &c.Backend.Timeout)
	if v, ok := lookup("PARLEY_MAX_TOKENS"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PARLEY_MAX_TOKENS: %w", err))
		} else {
			c.Backend.MaxTokens = n
		}
	}

	str("PARLEY_STORE", &c.Store.Driver)
	str("PARLEY_REDIS_ADDR", &c.Store.RedisAddr)
	str("PARLEY_REDIS_PASSWORD", &c.Store.RedisPassword)
	if v, ok := lookup("PARLEY_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PARLEY_REDIS_DB: %w", err))
		} else {
			c.Store.RedisDB = n
		}
	}
	dur("PARLEY_IDLE_TIMEOUT", &c.Store.IdleTimeout)
	str("PARLEY_STORE_KEY", &c.Store.EncryptionKey)

	str("PARLEY_BASE_URL", &c.Gateway.BaseURL)
	str("TWILIO_AUTH_TOKEN", &c.Gateway.AuthToken)
	str("PARLEY_SINGLE_LANGUAGE", &c.Gateway.SingleLanguage)
	str("PARLEY_LANGUAGES_FILE", &c.LanguagesFile)

	return errors.Join(errs...)
}

// ResolveAPIKey fills an empty Backend.APIKey from the environment variable
// of the selected provider. It must run after every provider override.
func (c *Config) ResolveAPIKey(lookup func(string) (string, bool)) {
	if c.Backend.APIKey != "" {
		return
	}
	var key string
	switch c.Backend.Provider {
	case ProviderAnthropic:
		key = "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		key = "OPENAI_API_KEY"
	default:
		return
	}
	if v, ok := lookup(key); ok {
		c.Backend.APIKey = v
	}
}

// Validate rejects unusable settings and returns non-fatal warnings.
// A missing API key is only a warning so the health endpoint still serves.
func (c Config) Validate() (warnings []string, err error) {
	var errs []error

	if p, convErr := strconv.Atoi(c.Port); convErr != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}

	switch c.Backend.Provider {
	case ProviderAnthropic, ProviderOpenAI:
		if c.Backend.APIKey == "" {
			warnings = append(warnings, fmt.Sprintf("no API key configured for %s backend; turns will fail", c.Backend.Provider))
		}
	case ProviderFake:
	default:
		errs = append(errs, fmt.Errorf("unknown backend provider %q", c.Backend.Provider))
	}
	if c.Backend.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.Backend.MaxTokens))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("backend timeout must be positive, got %s", c.Backend.Timeout))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			errs = append(errs, errors.New("redis store requires redis_addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if len(c.Store.PreviousKeys) > 0 && c.Store.EncryptionKey == "" {
		errs = append(errs, errors.New("previous_keys requires encryption_key"))
	}
	if c.Store.IdleTimeout <= 0 {
		warnings = append(warnings, "idle timeout disabled; abandoned sessions are never evicted")
	}

	if c.Gateway.AuthToken != "" && c.Gateway.BaseURL == "" {
		warnings = append(warnings, "signature validation without base_url relies on the request Host header")
	}

	return warnings, errors.Join(errs...)
}
