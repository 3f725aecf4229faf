package monitor

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/agentcost/internal/model"
)

// Metrics exposes session cost as Prometheus metrics on a private registry.
//
//   - agentcost_calls_total: priced usage records by model and tier
//   - agentcost_cost_usd_total: estimated cost by model, tier and token type
//   - agentcost_tokens_total: tokens by model, tier and token type
//   - agentcost_session_cost_usd: running session total
type Metrics struct {
	registry *prometheus.Registry

	calls       *prometheus.CounterVec
	cost        *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	sessionCost prometheus.Gauge
}

// NewMetrics creates and registers the cost metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentcost",
				Name:      "calls_total",
				Help:      "Priced usage records by model and tier",
			},
			[]string{"model", "tier"},
		),
		cost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentcost",
				Name:      "cost_usd_total",
				Help:      "Estimated cost in USD by model, tier and token type",
			},
			[]string{"model", "tier", "type"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentcost",
				Name:      "tokens_total",
				Help:      "Tokens by model, tier and token type",
			},
			[]string{"model", "tier", "type"},
		),
		sessionCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentcost",
			Name:      "session_cost_usd",
			Help:      "Estimated cost of the current session in USD",
		}),
	}

	m.registry.MustRegister(m.calls, m.cost, m.tokens, m.sessionCost)
	return m
}

// Observe records one breakdown. Counters only move forward, so negative
// amounts are skipped.
func (m *Metrics) Observe(b model.CostBreakdown) {
	tier := strconv.Itoa(b.Tier)
	m.calls.WithLabelValues(b.Model, tier).Inc()

	add := func(vec *prometheus.CounterVec, typ string, v float64) {
		if v > 0 {
			vec.WithLabelValues(b.Model, tier, typ).Add(v)
		}
	}
	add(m.cost, "input", b.BilledInputCost)
	add(m.cost, "output", b.OutputCost)
	add(m.cost, "cached", b.CachedCost)
	add(m.tokens, "input", float64(b.BilledInput))
	add(m.tokens, "output", float64(b.OutputTokens))
	add(m.tokens, "cached", float64(b.CachedTokens))
}

// SetSessionCost sets the running session total.
func (m *Metrics) SetSessionCost(v float64) {
	m.sessionCost.Set(v)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
