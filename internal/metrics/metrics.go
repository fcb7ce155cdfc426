// Package metrics exposes battlelog's Prometheus collectors.
//
// A Metrics value owns its own registry so tests and embedded servers never
// collide on the global default registerer. It doubles as the storage layer's
// MetricsHook.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "battlelog"

// Metrics bundles ingestion and storage collectors.
type Metrics struct {
	registry *prometheus.Registry

	Submissions      *prometheus.CounterVec
	Turns            prometheus.Counter
	Events           prometheus.Counter
	Rejects          prometheus.Counter
	Battles          *prometheus.CounterVec
	ReporterFailures *prometheus.CounterVec
	AuditBytes       prometheus.Counter
	SubmitLatency    prometheus.Histogram

	storeOps     *prometheus.CounterVec
	storeBytes   *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
}

// New builds a Metrics with a private registry. When withRuntime is set the
// Go and process collectors are registered too.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "submissions_total",
			Help: "Log submissions by outcome.",
		}, []string{"outcome"}),
		Turns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "turns_total",
			Help: "Turns committed to the active turn buffer.",
		}),
		Events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "events_total",
			Help: "Parsed events committed.",
		}),
		Rejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "unparsed_lines_total",
			Help: "Lines no pattern recognized.",
		}),
		Battles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "segment", Name: "decisions_total",
			Help: "Segmentation decisions by kind.",
		}, []string{"decision"}),
		ReporterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "report", Name: "failures_total",
			Help: "Reporters degraded after a failure.",
		}, []string{"kind"}),
		AuditBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "audit", Name: "bytes_total",
			Help: "Bytes appended to audit files.",
		}),
		SubmitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "submit_seconds",
			Help:    "End to end submission latency.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "ops_total",
			Help: "Storage operations by kind.",
		}, []string{"op"}),
		storeBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "bytes_total",
			Help: "Bytes moved through storage by kind.",
		}, []string{"op"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "store", Name: "op_seconds",
			Help:    "Storage operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.Submissions, m.Turns, m.Events, m.Rejects, m.Battles,
		m.ReporterFailures, m.AuditBytes, m.SubmitLatency,
		m.storeOps, m.storeBytes, m.storeLatency,
	)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRead implements pebblestore.MetricsHook.
func (m *Metrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.observe("read", elapsed, bytes)
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	m.observe("commit", elapsed, bytes)
	m.storeOps.WithLabelValues("batch_op").Add(float64(numOps))
}

func (m *Metrics) observe(op string, elapsed time.Duration, bytes int) {
	m.storeOps.WithLabelValues(op).Inc()
	m.storeBytes.WithLabelValues(op).Add(float64(bytes))
	m.storeLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}
