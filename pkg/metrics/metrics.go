// Package metrics exposes Prometheus counters for statement imports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expense_tracker"

// ImportMetrics records the outcome of statement imports, labelled by bank.
type ImportMetrics struct {
	registry *prometheus.Registry

	rowsParsed        *prometheus.CounterVec
	rowsSkipped       *prometheus.CounterVec
	rowsInserted      *prometheus.CounterVec
	duplicates        *prometheus.CounterVec
	dateFallbacks     *prometheus.CounterVec
	detectionFailures prometheus.Counter
	parseDuration     *prometheus.HistogramVec
}

// NewImportMetrics registers the import collectors, plus the Go and process
// collectors, on a private registry.
func NewImportMetrics() *ImportMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	counter := func(name, help string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      name,
			Help:      help,
		}, []string{"bank"})
		reg.MustRegister(c)
		return c
	}

	m := &ImportMetrics{
		registry:      reg,
		rowsParsed:    counter("rows_parsed_total", "Rows mapped to transactions."),
		rowsSkipped:   counter("rows_skipped_total", "Rows skipped for missing or unparsable mandatory fields."),
		rowsInserted:  counter("rows_inserted_total", "Transactions persisted by committed imports."),
		duplicates:    counter("duplicates_total", "Rows flagged as duplicates of stored transactions."),
		dateFallbacks: counter("date_fallbacks_total", "Rows whose transaction date fell back to the import day."),
		detectionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "detection_failures_total",
			Help:      "Uploads whose bank format could not be detected.",
		}),
		parseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "parse_duration_seconds",
			Help:      "Time spent decoding and mapping an upload.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"bank"}),
	}
	reg.MustRegister(m.detectionFailures, m.parseDuration)
	return m
}

// ObserveParse records the counters of a single parse.
func (m *ImportMetrics) ObserveParse(bank string, parsed, skipped, dateFallbacks int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rowsParsed.WithLabelValues(bank).Add(float64(parsed))
	m.rowsSkipped.WithLabelValues(bank).Add(float64(skipped))
	m.dateFallbacks.WithLabelValues(bank).Add(float64(dateFallbacks))
	m.parseDuration.WithLabelValues(bank).Observe(elapsed.Seconds())
}

// DetectionFailed counts an upload in an unknown format.
func (m *ImportMetrics) DetectionFailed() {
	if m == nil {
		return
	}
	m.detectionFailures.Inc()
}

// ObserveCommit records duplicates found and rows written by a commit.
func (m *ImportMetrics) ObserveCommit(bank string, duplicates, inserted int) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(bank).Add(float64(duplicates))
	m.rowsInserted.WithLabelValues(bank).Add(float64(inserted))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *ImportMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
