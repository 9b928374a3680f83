// Package metrics exposes Prometheus collectors for the scoring and finance
// cores. This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	LeadScores       *prometheus.CounterVec
	LeadScoreValue   prometheus.Histogram
	RTOQuotes        *prometheus.CounterVec
	StaleLeads       prometheus.Counter
	NotificationSent *prometheus.CounterVec
}

// New registers all collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LeadScores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_scores_computed_total",
			Help: "Lead score recalculations by resulting temperature.",
		}, []string{"temperature"}),
		LeadScoreValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lead_score_value",
			Help:    "Distribution of computed lead scores.",
			Buckets: []float64{20, 40, 60, 70, 80, 100},
		}),
		RTOQuotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rto_quotes_calculated_total",
			Help: "RTO quotes calculated by formula and whether the term factor was defaulted.",
		}, []string{"formula", "factor_defaulted"}),
		StaleLeads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stale_leads_detected_total",
			Help: "Stale leads reported by the detector after de-duplication.",
		}),
		NotificationSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_notifications_sent_total",
			Help: "Notification emails by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(
		m.LeadScores,
		m.LeadScoreValue,
		m.RTOQuotes,
		m.StaleLeads,
		m.NotificationSent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveLeadScore records one recalculation. Safe on a nil receiver.
func (m *Metrics) ObserveLeadScore(score int, temperature string) {
	if m == nil {
		return
	}
	m.LeadScores.WithLabelValues(temperature).Inc()
	m.LeadScoreValue.Observe(float64(score))
}

// ObserveQuote records one RTO calculation. Safe on a nil receiver.
func (m *Metrics) ObserveQuote(formula string, factorDefaulted bool) {
	if m == nil {
		return
	}
	defaulted := "false"
	if factorDefaulted {
		defaulted = "true"
	}
	m.RTOQuotes.WithLabelValues(formula, defaulted).Inc()
}

// AddStaleLeads records newly alerted stale leads. Safe on a nil receiver.
func (m *Metrics) AddStaleLeads(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StaleLeads.Add(float64(n))
}

// ObserveNotification records one notification attempt. Safe on a nil receiver.
func (m *Metrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.NotificationSent.WithLabelValues(kind, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
