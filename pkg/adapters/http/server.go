package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/twiml"
	"github.com/aretw0/parley/pkg/callflow"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/twilio/twilio-go/client"
)

// DefaultTurnTimeout bounds how long one webhook may spend in the controller,
// including the backend call.
const DefaultTurnTimeout = 20 * time.Second

var errMissingCallSid = errors.New("missing CallSid")

// Server answers gateway webhooks.
type Server struct {
	controller *callflow.Controller
	renderer   *twiml.Renderer
	metrics    *observability.Metrics
	logger     *slog.Logger

	turnTimeout time.Duration
	agent       string
	version     string
	provider    string

	validator *client.RequestValidator
	publicURL string
}

// Option configures the Server.
type Option func(*Server)

// WithRenderer overrides the TwiML renderer (default: relative action URLs).
func WithRenderer(r *twiml.Renderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithMetrics exposes the registry on GET /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTurnTimeout bounds controller work per webhook.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.turnTimeout = d
		}
	}
}

// WithInfo sets the fields reported by GET /health.
func WithInfo(agent, version, provider string) Option {
	return func(s *Server) {
		s.agent = agent
		s.version = version
		s.provider = provider
	}
}

// WithSignatureValidation rejects webhooks whose X-Twilio-Signature does not
// match authToken. publicURL is the externally visible base URL the gateway
// signs; when empty the request's own scheme and host are used.
func WithSignatureValidation(authToken, publicURL string) Option {
	return func(s *Server) {
		if authToken == "" {
			return
		}
		v := client.NewRequestValidator(authToken)
		s.validator = &v
		s.publicURL = publicURL
	}
}

// NewHandler builds the router for the controller.
func NewHandler(controller *callflow.Controller, opts ...Option) http.Handler {
	s := &Server{
		controller:  controller,
		renderer:    twiml.NewRenderer(""),
		logger:      logging.NewNop(),
		turnTimeout: DefaultTurnTimeout,
		agent:       "parley",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.logRequests)

	r.Get("/health", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.parseWebhook)
		if s.validator != nil {
			r.Use(s.verifySignature)
		}
		r.Post(callflow.RouteEntry, s.Voice)
		r.Post(callflow.RouteLanguage, s.Language)
		r.Post(callflow.RouteRespond, s.Respond)
		r.Post(callflow.RouteStatus, s.Status)
	})
	return r
}

// Voice handles POST /voice, the first signal of a call.
func (s *Server) Voice(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, func(ctx context.Context, sig Signal) callflow.Response {
		return s.controller.Entry(ctx, sig.CallSid)
	})
}

// Language handles POST /language with the menu choice.
func (s *Server) Language(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, func(ctx context.Context, sig Signal) callflow.Response {
		return s.controller.SelectLanguage(ctx, sig.CallSid, sig.Selector())
	})
}

// Respond handles POST /respond with a recognized utterance.
func (s *Server) Respond(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, func(ctx context.Context, sig Signal) callflow.Response {
		return s.controller.Converse(ctx, sig.CallSid, sig.SpeechResult)
	})
}

// Status handles POST /status call progress callbacks.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	sig, ok := s.signal(w, r)
	if !ok {
		return
	}
	if sig.Ended() {
		ctx, cancel := s.detach(r.Context())
		defer cancel()
		if err := s.controller.Hangup(ctx, sig.CallSid); err != nil {
			s.logger.Error("Failed to end session", "call_id", sig.CallSid, "status", sig.CallStatus, "err", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	languages := make([]string, 0)
	for _, key := range s.controller.Catalog().Keys() {
		languages = append(languages, string(key))
	}

	resp := map[string]any{
		"status":    "ok",
		"agent":     s.agent,
		"version":   s.version,
		"backend":   s.provider,
		"languages": languages,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Health response encode failed", "err", err)
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request, fn func(context.Context, Signal) callflow.Response) {
	sig, ok := s.signal(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.detach(r.Context())
	defer cancel()

	resp := fn(ctx, sig)
	doc, err := s.renderer.Render(resp)
	if err != nil {
		http.Error(w, "Failed to render response", http.StatusInternalServerError)
		s.logger.Error("Render failed", "call_id", sig.CallSid, "err", err)
		return
	}

	s.logger.Debug("Webhook answered",
		"call_id", sig.CallSid,
		"path", r.URL.Path,
		"state", resp.State,
	)
	w.Header().Set("Content-Type", twiml.ContentType)
	if _, err := w.Write([]byte(doc)); err != nil {
		s.logger.Warn("Failed to write response", "call_id", sig.CallSid, "err", err)
	}
}

func (s *Server) signal(w http.ResponseWriter, r *http.Request) (Signal, bool) {
	sig, err := decodeSignal(r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		s.logger.Warn("Rejected webhook", "path", r.URL.Path, "err", err)
		return Signal{}, false
	}
	return sig, true
}

// detach keeps controller work alive when the gateway drops the request, so
// the session is never left half-updated.
func (s *Server) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.turnTimeout)
}
