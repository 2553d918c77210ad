package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
)

// Hooks returns lifecycle callbacks that log each event and record it on m.
// Either argument may be nil.
func Hooks(m *Metrics, logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = logging.NewNop()
	}

	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_start",
				"call_id", e.CallID,
				"language", e.Language,
			)
			if m != nil {
				m.CallsStarted.WithLabelValues(string(e.Language)).Inc()
			}
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_end",
				"call_id", e.CallID,
				"language", e.Language,
				"reason", e.Reason,
			)
			if m == nil {
				return
			}
			m.SessionsEnded.WithLabelValues(string(e.Reason)).Inc()
			if e.Reason == domain.EndIdle {
				m.SessionsEvicted.Inc()
			}
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn",
				"call_id", e.CallID,
				"language", e.Language,
				"history_len", e.HistoryLen,
				"duration", e.Duration,
			)
			if m != nil {
				m.Turns.WithLabelValues(string(e.Language), OutcomeOK).Inc()
				m.BackendDuration.WithLabelValues(string(e.Language)).Observe(e.Duration.Seconds())
			}
		},
		OnBackendError: func(ctx context.Context, e *domain.TurnEvent) {
			logger.WarnContext(ctx, "backend_error",
				"call_id", e.CallID,
				"language", e.Language,
				"kind", e.ErrorKind,
				"duration", e.Duration,
			)
			if m != nil {
				m.Turns.WithLabelValues(string(e.Language), OutcomeBackendError).Inc()
				m.BackendErrors.WithLabelValues(string(e.ErrorKind)).Inc()
				m.BackendDuration.WithLabelValues(string(e.Language)).Observe(e.Duration.Seconds())
			}
		},
		OnReprompt: func(ctx context.Context, e *domain.EventBase) {
			logger.DebugContext(ctx, "reprompt",
				"call_id", e.CallID,
				"language", e.Language,
			)
			if m != nil {
				m.Turns.WithLabelValues(string(e.Language), OutcomeNoInput).Inc()
			}
		},
	}
}
