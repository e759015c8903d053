// Package metrics exposes Prometheus collectors for imports and
// categorization. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors.
type Metrics struct {
	registry *prometheus.Registry

	importsTotal        *prometheus.CounterVec
	importRows          *prometheus.CounterVec
	importDuration      prometheus.Histogram
	classifications     *prometheus.CounterVec
	rulesLearned        *prometheus.CounterVec
	propagatedTotal     prometheus.Counter
	backlogSweepTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		importsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_imports_total",
				Help: "Statement imports by outcome",
			},
			[]string{"status"},
		),
		importRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_import_rows_total",
				Help: "Statement rows by outcome (parsed, error, skipped)",
			},
			[]string{"outcome"},
		),
		importDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "budget_import_duration_milliseconds",
				Help:    "Import duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
		),
		classifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_classifications_total",
				Help: "Classifications by match tier",
			},
			[]string{"match_type"},
		),
		rulesLearned: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_rules_learned_total",
				Help: "Learn calls by outcome (created, updated, unchanged)",
			},
			[]string{"outcome"},
		),
		propagatedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "budget_propagated_transactions_total",
				Help: "Transactions re-labelled by batch propagation",
			},
		),
		backlogSweepTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_backlog_sweep_transactions_total",
				Help: "Transactions visited by the backlog sweep by outcome",
			},
			[]string{"outcome"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budget_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "code"},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordImport(status string, parsed, failed, skipped int, d time.Duration) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(status).Inc()
	m.importRows.WithLabelValues("parsed").Add(float64(parsed))
	m.importRows.WithLabelValues("error").Add(float64(failed))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
	m.importDuration.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) RecordClassification(matchType string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(matchType).Inc()
}

func (m *Metrics) RecordLearn(outcome string) {
	if m == nil {
		return
	}
	m.rulesLearned.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordPropagated(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.propagatedTotal.Add(float64(n))
}

func (m *Metrics) RecordSweep(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.backlogSweepTotal.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) ObserveHTTP(route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(route, code).Observe(d.Seconds())
}
