package callflow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/dialogue"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/language"
	"github.com/aretw0/parley/pkg/session"
)

// Controller answers gateway signals for every call.
// It is safe for concurrent use; per-call exclusion is delegated to the session manager.
type Controller struct {
	sessions *session.Manager
	catalog  *language.Catalog
	engine   *dialogue.Engine

	single domain.LocaleKey
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Controller.
type Option func(*Controller)

// WithSingleLanguage skips the language menu: every call starts conversing
// in the given locale.
func WithSingleLanguage(key domain.LocaleKey) Option {
	return func(c *Controller) {
		c.single = key
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController wires the session manager, catalog and dialogue engine.
func NewController(sessions *session.Manager, catalog *language.Catalog, engine *dialogue.Engine, opts ...Option) *Controller {
	c := &Controller{
		sessions: sessions,
		catalog:  catalog,
		engine:   engine,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the language catalog in use.
func (c *Controller) Catalog() *language.Catalog {
	return c.catalog
}

// SingleLanguage reports the fixed locale, if the menu is disabled.
func (c *Controller) SingleLanguage() (domain.LocaleKey, bool) {
	return c.single, c.single != ""
}

// Entry answers the first signal of a call with the language menu.
// No session is created. In single-language mode the call goes straight to
// the greeting of the configured locale.
func (c *Controller) Entry(ctx context.Context, callID string) Response {
	if c.single != "" {
		return c.start(ctx, callID, c.catalog.Get(c.single))
	}

	c.logger.Debug("Presenting language menu", "call_id", callID)

	def := c.catalog.Default()
	entries := c.catalog.Entries()
	prompts := make([]Say, 0, len(entries))
	for _, e := range entries {
		prompts = append(prompts, Say{Text: e.MenuPrompt, Voice: e.Voice, Locale: e.Locale})
	}

	return Response{
		State: domain.StateLanguageSelect,
		Instructions: []Instruction{
			Gather{
				Mode:      CaptureAny,
				Action:    RouteLanguage,
				Locale:    def.Locale,
				NumDigits: 1,
				Prompts:   prompts,
			},
			Redirect{Action: RouteEntry},
		},
	}
}

// SelectLanguage resolves the caller's choice (digit or spoken name), binds a
// fresh session to the call, and greets the caller. Unknown selectors fall
// back to the default locale.
func (c *Controller) SelectLanguage(ctx context.Context, callID, selector string) Response {
	entry, ok := c.catalog.Match(selector)
	if !ok {
		c.logger.Info("Falling back to default language",
			"call_id", callID,
			"selector", selector,
			"language", entry.Key,
			"err", domain.ErrUnknownSelector,
		)
	}
	return c.start(ctx, callID, entry)
}

func (c *Controller) start(ctx context.Context, callID string, entry language.Entry) Response {
	sess, err := c.sessions.CreateOrReset(ctx, callID, entry.Key)
	if err != nil {
		c.logger.Error("Failed to create session", "call_id", callID, "language", entry.Key, "err", err)
		return Response{
			State: domain.StateEntry,
			Instructions: []Instruction{
				Say{Text: entry.ErrorPrompt, Voice: entry.Voice, Locale: entry.Locale},
				Redirect{Action: RouteEntry},
			},
		}
	}

	c.logger.Info("Session started", "call_id", callID, "language", entry.Key)
	if c.hooks.OnSessionStart != nil {
		c.hooks.OnSessionStart(ctx, &domain.SessionEvent{
			EventBase: domain.NewEventBase(domain.EventSessionStart, sess.CallID, sess.Language),
		})
	}
	return listen(entry, entry.Greeting)
}

// Converse handles one caller utterance.
func (c *Controller) Converse(ctx context.Context, callID, utterance string) Response {
	sess, ok, err := c.sessions.Get(ctx, callID)
	if err != nil {
		c.logger.Error("Failed to load session", "call_id", callID, "err", err)
		return listen(c.catalog.Default(), c.catalog.Default().ErrorPrompt)
	}
	if !ok {
		c.logger.Info("No session for call, restarting", "call_id", callID)
		return restart()
	}

	entry := c.catalog.Get(sess.Language)
	text := strings.TrimSpace(utterance)

	if text == "" {
		c.logger.Debug("No speech captured", "call_id", callID, "language", entry.Key)
		if c.hooks.OnReprompt != nil {
			ev := domain.NewEventBase(domain.EventReprompt, callID, entry.Key)
			c.hooks.OnReprompt(ctx, &ev)
		}
		return listen(entry, entry.NoInput)
	}

	if entry.IsTermination(text) {
		return c.farewell(ctx, callID, entry)
	}

	var (
		reply      string
		historyLen int
	)
	start := time.Now()
	found, err := c.sessions.Update(ctx, callID, func(ctx context.Context, s *domain.Session) error {
		var err error
		reply, err = c.engine.Turn(ctx, s, entry, text)
		historyLen = len(s.History)
		return err
	})
	elapsed := time.Since(start)

	if !found && err == nil {
		c.logger.Info("Session vanished during turn, restarting", "call_id", callID)
		return restart()
	}

	ev := &domain.TurnEvent{
		EventBase:  domain.NewEventBase(domain.EventTurn, callID, entry.Key),
		HistoryLen: historyLen,
		Duration:   elapsed,
	}

	if err != nil {
		if be, ok := domain.AsBackendError(err); ok {
			ev.Type = domain.EventBackendError
			ev.ErrorKind = be.Kind
			c.logger.Warn("Generation backend failed",
				"call_id", callID,
				"language", entry.Key,
				"provider", be.Provider,
				"kind", be.Kind,
				"err", be.Err,
			)
			if c.hooks.OnBackendError != nil {
				c.hooks.OnBackendError(ctx, ev)
			}
		} else {
			c.logger.Error("Turn failed", "call_id", callID, "language", entry.Key, "err", err)
		}
		return listen(entry, entry.ErrorPrompt)
	}

	c.logger.Debug("Turn completed",
		"call_id", callID,
		"language", entry.Key,
		"history_len", historyLen,
		"duration", elapsed,
	)
	if c.hooks.OnTurn != nil {
		c.hooks.OnTurn(ctx, ev)
	}
	return listen(entry, reply)
}

// Hangup removes the session after the gateway reports the call has ended.
// Unknown calls are ignored.
func (c *Controller) Hangup(ctx context.Context, callID string) error {
	sess, ok, err := c.sessions.Get(ctx, callID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := c.sessions.Remove(ctx, callID); err != nil {
		return err
	}
	c.logger.Info("Session ended", "call_id", callID, "reason", domain.EndHangup)
	c.endHook(ctx, callID, sess.Language, domain.EndHangup)
	return nil
}

func (c *Controller) farewell(ctx context.Context, callID string, entry language.Entry) Response {
	if err := c.sessions.Remove(ctx, callID); err != nil {
		c.logger.Error("Failed to remove session", "call_id", callID, "err", err)
	} else {
		c.logger.Info("Session ended", "call_id", callID, "language", entry.Key, "reason", domain.EndFarewell)
		c.endHook(ctx, callID, entry.Key, domain.EndFarewell)
	}

	return Response{
		State: domain.StateTerminated,
		Instructions: []Instruction{
			Say{Text: entry.Farewell, Voice: entry.Voice, Locale: entry.Locale},
			Hangup{},
		},
	}
}

func (c *Controller) endHook(ctx context.Context, callID string, lang domain.LocaleKey, reason domain.EndReason) {
	if c.hooks.OnSessionEnd == nil {
		return
	}
	c.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
		EventBase: domain.NewEventBase(domain.EventSessionEnd, callID, lang),
		Reason:    reason,
	})
}

// listen speaks text and re-arms speech capture for the next utterance.
func listen(entry language.Entry, text string) Response {
	return Response{
		State: domain.StateConversing,
		Instructions: []Instruction{
			Gather{
				Mode:    CaptureSpeech,
				Action:  RouteRespond,
				Locale:  entry.Locale,
				Prompts: []Say{{Text: text, Voice: entry.Voice, Locale: entry.Locale}},
			},
			Redirect{Action: RouteRespond},
		},
	}
}

func restart() Response {
	return Response{
		State:        domain.StateEntry,
		Instructions: []Instruction{Redirect{Action: RouteEntry}},
	}
}
