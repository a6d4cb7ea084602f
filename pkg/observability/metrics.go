package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/domain"
)

const namespace = "tutor"

// Metrics records attempts, advances and completions.
type Metrics struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	attempts    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	advances    *prometheus.CounterVec
	completions *prometheus.CounterVec
}

// Option configures Metrics.
type Option func(*Metrics)

// WithLogger logs every event in addition to recording it.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Metrics) {
		m.logger = logger
	}
}

// WithRegistry registers the collectors on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Metrics) {
		m.registry = reg
	}
}

// NewMetrics creates and registers the collectors.
func NewMetrics(opts ...Option) *Metrics {
	m := &Metrics{
		logger: logging.NewNop(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Total number of judged attempts",
			},
			[]string{"page_id", "verdict", "fault_kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Duration of attempt evaluation",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"page_id"},
		),
		advances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_advances_total",
				Help:      "Total number of cursor advances to a next step",
			},
			[]string{"page_id", "step_id"},
		),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "page_completions_total",
				Help:      "Total number of completed pages",
			},
			[]string{"page_id"},
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.registry.MustRegister(m.attempts, m.duration, m.advances, m.completions)
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttempt: func(ctx context.Context, e *domain.AttemptEvent) {
			m.logger.DebugContext(ctx, "attempt",
				"session_id", e.SessionID,
				"page_id", e.PageID,
				"step_id", e.StepID,
				"verdict", e.Verdict,
				"fault_kind", e.FaultKind,
				"failures", e.Failures,
				"duration", e.Duration,
			)
			m.attempts.WithLabelValues(e.PageID, string(e.Verdict), e.FaultKind).Inc()
			m.duration.WithLabelValues(e.PageID).Observe(e.Duration.Seconds())
		},
		OnAdvance: func(ctx context.Context, e *domain.StepEvent) {
			m.logger.DebugContext(ctx, "advance", "session_id", e.SessionID, "from", e.FromStepID, "to", e.ToStepID)
			m.advances.WithLabelValues(e.PageID, e.FromStepID).Inc()
		},
		OnComplete: func(ctx context.Context, e *domain.StepEvent) {
			m.logger.InfoContext(ctx, "page complete", "session_id", e.SessionID, "page_id", e.PageID)
			m.completions.WithLabelValues(e.PageID).Inc()
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
