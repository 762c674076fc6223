package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiAttempts        *prometheus.CounterVec
	apiRetries         *prometheus.CounterVec
	apiOutcomes        *prometheus.CounterVec
	guardDecisions     *prometheus.CounterVec
	sessionResolutions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		apiAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_api_attempts_total",
				Help: "Total physical requests sent to the CampusIQ API.",
			},
			[]string{"endpoint"},
		),
		apiRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_api_retries_total",
				Help: "Total retries scheduled by the resilient client, by reason.",
			},
			[]string{"endpoint", "reason"},
		),
		apiOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_api_outcomes_total",
				Help: "Terminal outcomes of logical API calls.",
			},
			[]string{"endpoint", "outcome"},
		),
		guardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_guard_decisions_total",
				Help: "Route guard decisions by route and outcome.",
			},
			[]string{"route", "outcome"},
		),
		sessionResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_session_resolutions_total",
				Help: "Identity resolutions by result.",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.apiAttempts,
			m.apiRetries,
			m.apiOutcomes,
			m.guardDecisions,
			m.sessionResolutions,
		)
	}
	return m
}

// RecordAttempt counts one physical request
func (m *Metrics) RecordAttempt(endpoint string) {
	if m == nil {
		return
	}
	m.apiAttempts.WithLabelValues(endpoint).Inc()
}

// RecordRetry counts one scheduled retry
func (m *Metrics) RecordRetry(endpoint, reason string) {
	if m == nil {
		return
	}
	m.apiRetries.WithLabelValues(endpoint, reason).Inc()
}

// RecordOutcome counts the terminal outcome of a logical call
func (m *Metrics) RecordOutcome(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.apiOutcomes.WithLabelValues(endpoint, outcome).Inc()
}

// RecordGuardDecision counts a route guard decision
func (m *Metrics) RecordGuardDecision(route, outcome string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(route, outcome).Inc()
}

// RecordSessionResolution counts a settled identity resolution
func (m *Metrics) RecordSessionResolution(result string) {
	if m == nil {
		return
	}
	m.sessionResolutions.WithLabelValues(result).Inc()
}
