package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeBackendError = "backend_error"
	OutcomeNoInput      = "no_input"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	CallsStarted    *prometheus.CounterVec
	SessionsEnded   *prometheus.CounterVec
	SessionsEvicted prometheus.Counter
	Turns           *prometheus.CounterVec
	BackendErrors   *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors under namespace
// (default "parley").
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "parley"
	}

	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
		CallsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_started_total",
				Help:      "Sessions created after language selection",
			},
			[]string{"language"},
		),
		SessionsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_ended_total",
				Help:      "Sessions removed, by reason",
			},
			[]string{"reason"},
		),
		SessionsEvicted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_evicted_total",
				Help:      "Sessions removed after the idle timeout",
			},
		),
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Caller utterances handled, by outcome",
			},
			[]string{"language", "outcome"},
		),
		BackendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_errors_total",
				Help:      "Generation backend failures, by kind",
			},
			[]string{"kind"},
		),
		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_duration_seconds",
				Help:      "Time spent in a dialogue turn, including the backend call",
				Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13},
			},
			[]string{"language"},
		),
	}

	m.registry.MustRegister(
		m.CallsStarted,
		m.SessionsEnded,
		m.SessionsEvicted,
		m.Turns,
		m.BackendErrors,
		m.BackendDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackActiveSessions registers a gauge sampled from count at scrape time.
func (m *Metrics) TrackActiveSessions(count func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held by the store",
		},
		count,
	))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
