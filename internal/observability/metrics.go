package observability

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Record outcomes used as the "outcome" label.
const (
	OutcomeQueued       = "queued"
	OutcomeNoPhone      = "no_phone"
	OutcomeSeparator    = "separator_missing"
	OutcomeUnterminated = "unterminated"
)

// Metrics stores Prometheus collectors for import runs.
type Metrics struct {
	registry *prometheus.Registry

	rowsReadTotal       prometheus.Counter
	recordsTotal        *prometheus.CounterVec
	publishFailedTotal  prometheus.Counter
	importDuration      prometheus.Histogram
	lastSuccessUnixTime prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		rowsReadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "textqueue",
				Name:      "rows_read_total",
				Help:      "Total number of CSV rows read from exports.",
			},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textqueue",
				Name:      "records_total",
				Help:      "Total number of record groups by outcome.",
			},
			[]string{"outcome"},
		),
		publishFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "textqueue",
				Name:      "publish_failed_total",
				Help:      "Total number of stored messages that could not be announced on the work queue.",
			},
		),
		importDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "textqueue",
				Name:      "import_duration_seconds",
				Help:      "Wall time of a full import run in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		lastSuccessUnixTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "textqueue",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last import run that finished without error.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		m.rowsReadTotal,
		m.recordsTotal,
		m.publishFailedTotal,
		m.importDuration,
		m.lastSuccessUnixTime,
	)

	return m
}

func (m *Metrics) AddRowsRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsReadTotal.Add(float64(n))
}

func (m *Metrics) AddRecords(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	label := strings.ToLower(strings.TrimSpace(outcome))
	if label == "" {
		label = "unknown"
	}
	m.recordsTotal.WithLabelValues(label).Add(float64(n))
}

// AddPublishFailed counts stored messages that were not announced on the work queue.
func (m *Metrics) AddPublishFailed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.publishFailedTotal.Add(float64(n))
}

func (m *Metrics) ObserveImportDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.importDuration.Observe(seconds)
}

func (m *Metrics) MarkSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessUnixTime.Set(float64(at.Unix()))
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || m.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
