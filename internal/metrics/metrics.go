// Package metrics holds the Prometheus registry for the decision engine:
// webhook arrivals, gate outcomes, provider call health, and ledger
// latency, all exposed on the standard /metrics endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/marketsignal/decisionengine/internal/errcat"
)

// Registry holds every Prometheus metric the engine exposes.
type Registry struct {
	// Orchestrator pipeline step durations (routing, context-build, decision, ledger append, ...)
	StepDuration *prometheus.HistogramVec

	// Webhook ingestion
	WebhookReceived *prometheus.CounterVec
	WebhookRejected *prometheus.CounterVec

	// Gate outcomes
	GateEvaluations *prometheus.CounterVec

	// Decision verdicts
	Decisions *prometheus.CounterVec

	// Provider fan-out
	ProviderCallDuration *prometheus.HistogramVec
	ProviderFailures     *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec

	// Cache
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Ledger
	LedgerAppendDuration prometheus.Histogram
	LedgerErrors         *prometheus.CounterVec

	// Degradation
	DegradationLevel *prometheus.GaugeVec
}

// NewRegistry builds and registers every metric against reg (pass
// prometheus.NewRegistry() in tests to avoid the global default
// registry's duplicate-registration panics across test runs).
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decisionengine_step_duration_seconds",
				Help:    "Duration of each orchestrator pipeline step in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"step", "result"},
		),

		WebhookReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisionengine_webhooks_received_total",
				Help: "Total number of webhook deliveries received by source",
			},
			[]string{"source"},
		),

		WebhookRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisionengine_webhooks_rejected_total",
				Help: "Total number of webhook deliveries rejected by source and error kind",
			},
			[]string{"source", "error_kind"},
		),

		GateEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisionengine_gate_evaluations_total",
				Help: "Total number of gate evaluations by gate name and pass/fail",
			},
			[]string{"gate", "passed"},
		),

		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisionengine_decisions_total",
				Help: "Total number of decision packets produced by verdict",
			},
			[]string{"verdict"},
		),

		ProviderCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decisionengine_provider_call_duration_seconds",
				Help:    "Duration of individual market-data provider calls in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"provider", "result"},
		),

		ProviderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisionengine_provider_failures_total",
				Help: "Total number of provider call failures by provider and error kind",
			},
			[]string{"provider", "error_kind"},
		),

		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "decisionengine_circuit_breaker_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisionengine_cache_hits_total",
				Help: "Total number of market-context cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisionengine_cache_misses_total",
				Help: "Total number of market-context cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		LedgerAppendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "decisionengine_ledger_append_duration_seconds",
				Help:    "Duration of ledger append calls in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),

		LedgerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisionengine_ledger_errors_total",
				Help: "Total number of ledger operation errors by operation and error kind",
			},
			[]string{"operation", "error_kind"},
		),

		DegradationLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "decisionengine_degradation_level",
				Help: "Current market-context degradation level per symbol (0=none,1=minor,2=major,3=severe)",
			},
			[]string{"symbol"},
		),
	}

	reg.MustRegister(
		m.StepDuration,
		m.WebhookReceived,
		m.WebhookRejected,
		m.GateEvaluations,
		m.Decisions,
		m.ProviderCallDuration,
		m.ProviderFailures,
		m.CircuitBreakerState,
		m.CacheHits,
		m.CacheMisses,
		m.LedgerAppendDuration,
		m.LedgerErrors,
		m.DegradationLevel,
	)

	return m
}

// NewDefaultRegistry registers against prometheus.DefaultRegisterer, the
// variant cmd/engine wires into the real /metrics endpoint.
func NewDefaultRegistry() *Registry {
	return NewRegistry(prometheus.DefaultRegisterer)
}

// StepTimer times a single orchestrator pipeline step.
type StepTimer struct {
	m     *Registry
	step  string
	start time.Time
}

// StartStep begins timing a pipeline step.
func (m *Registry) StartStep(step string) *StepTimer {
	return &StepTimer{m: m, step: step, start: time.Now()}
}

// Stop records the step's duration under result ("ok", "error", "skipped").
func (st *StepTimer) Stop(result string) {
	duration := time.Since(st.start)
	st.m.StepDuration.WithLabelValues(st.step, result).Observe(duration.Seconds())
}

// RecordWebhook records an inbound webhook delivery.
func (m *Registry) RecordWebhook(source string) {
	m.WebhookReceived.WithLabelValues(source).Inc()
}

// RecordWebhookRejected records a webhook that failed validation or auth.
func (m *Registry) RecordWebhookRejected(source, errorKind string) {
	m.WebhookRejected.WithLabelValues(source, errorKind).Inc()
}

// RecordGate records a single gate's pass/fail outcome.
func (m *Registry) RecordGate(gate string, passed bool) {
	m.GateEvaluations.WithLabelValues(gate, boolLabel(passed)).Inc()
}

// RecordDecision records the final verdict of a decision packet.
func (m *Registry) RecordDecision(verdict string) {
	m.Decisions.WithLabelValues(verdict).Inc()
}

// RecordProviderCall records a provider call's duration and result.
func (m *Registry) RecordProviderCall(provider, result string, duration time.Duration) {
	m.ProviderCallDuration.WithLabelValues(provider, result).Observe(duration.Seconds())
}

// RecordProviderFailure records a classified provider failure.
func (m *Registry) RecordProviderFailure(provider, errorKind string) {
	m.ProviderFailures.WithLabelValues(provider, errorKind).Inc()
	log.Warn().Str("provider", provider).Str("error_kind", errorKind).Msg("provider call failed")
}

// SetCircuitBreakerState records a provider's breaker state (0/1/2 — closed/half-open/open).
func (m *Registry) SetCircuitBreakerState(provider string, state float64) {
	m.CircuitBreakerState.WithLabelValues(provider).Set(state)
}

// RecordCacheHit records a market-context cache hit.
func (m *Registry) RecordCacheHit(cacheType string) {
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a market-context cache miss.
func (m *Registry) RecordCacheMiss(cacheType string) {
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordLedgerAppend records the duration of a ledger append call.
func (m *Registry) RecordLedgerAppend(duration time.Duration) {
	m.LedgerAppendDuration.Observe(duration.Seconds())
}

// RecordLedgerError records a classified ledger operation error.
func (m *Registry) RecordLedgerError(operation, errorKind string) {
	m.LedgerErrors.WithLabelValues(operation, errorKind).Inc()
}

// SetDegradationLevel records the current degradation level for a symbol (0-3).
func (m *Registry) SetDegradationLevel(symbol string, level float64) {
	m.DegradationLevel.WithLabelValues(symbol).Set(level)
}

// Handler returns the HTTP handler that serves metrics in the Prometheus
// text exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.Handler()
}

// DegradationLevelValue maps a degradation level to the gauge value
// SetDegradationLevel expects.
func DegradationLevelValue(level errcat.Level) float64 {
	switch level {
	case errcat.LevelMinor:
		return 1
	case errcat.LevelMajor:
		return 2
	case errcat.LevelSevere:
		return 3
	default:
		return 0
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
