// Package metrics exposes Prometheus counters for the trade lifecycle and
// the synthetic quote cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mocktrader"

// Metrics holds the collectors registered for one process. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	TradesCreated     *prometheus.CounterVec
	TradeTransitions  *prometheus.CounterVec
	TransitionErrors  *prometheus.CounterVec
	QuoteRequests     *prometheus.CounterVec
	InjectedFailures  prometheus.Counter
	WebhookDeliveries *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TradesCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "trades",
				Name:      "created_total",
				Help:      "Trades recorded, by initial status",
			},
			[]string{"status"},
		),
		TradeTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "trades",
				Name:      "transitions_total",
				Help:      "Successful trade status transitions, by target status",
			},
			[]string{"status"},
		),
		TransitionErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "trades",
				Name:      "transition_errors_total",
				Help:      "Refused trade operations, by operation and error",
			},
			[]string{"operation", "error"},
		),
		QuoteRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "marketdata",
				Name:      "quote_requests_total",
				Help:      "Quote lookups, by cache result",
			},
			[]string{"result"},
		),
		InjectedFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "marketdata",
				Name:      "injected_failures_total",
				Help:      "Simulated execution failures returned",
			},
		),
		WebhookDeliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhooks",
				Name:      "deliveries_total",
				Help:      "Webhook delivery attempts, by event and outcome",
			},
			[]string{"event", "outcome"},
		),
	}
}

// TradeCreated counts a newly recorded trade.
func (m *Metrics) TradeCreated(status string) {
	if m == nil {
		return
	}
	m.TradesCreated.WithLabelValues(status).Inc()
}

// Transition counts a successful status change.
func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.TradeTransitions.WithLabelValues(status).Inc()
}

// TransitionError counts a refused operation. code is the sentinel error
// code, never a message carrying IDs.
func (m *Metrics) TransitionError(operation, code string) {
	if m == nil {
		return
	}
	m.TransitionErrors.WithLabelValues(operation, code).Inc()
}

// QuoteHit counts a quote served from cache.
func (m *Metrics) QuoteHit() {
	if m == nil {
		return
	}
	m.QuoteRequests.WithLabelValues("hit").Inc()
}

// QuoteMiss counts a quote that had to be generated.
func (m *Metrics) QuoteMiss() {
	if m == nil {
		return
	}
	m.QuoteRequests.WithLabelValues("miss").Inc()
}

// InjectedFailure counts a simulated execution failure.
func (m *Metrics) InjectedFailure() {
	if m == nil {
		return
	}
	m.InjectedFailures.Inc()
}

// WebhookDelivery counts a delivery attempt.
func (m *Metrics) WebhookDelivery(event, outcome string) {
	if m == nil {
		return
	}
	m.WebhookDeliveries.WithLabelValues(event, outcome).Inc()
}
