// Package metrics exposes Prometheus counters/gauges mirroring the shared
// Metrics Store's own counter set, using a custom registry rather than the
// global default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all prometheus metrics for the ingestion pipeline.
// uses a custom registry to avoid polluting the global namespace.
type Metrics struct {
	Registry *prometheus.Registry

	// http_request_duration_seconds - histogram for api latency
	HTTPRequestDuration *prometheus.HistogramVec

	// ingest_messages_total - counter for ingested messages (pre-commit)
	MessagesIngestedTotal prometheus.Counter

	// ingest_batches_committed_total - counter for committed batches
	BatchesCommittedTotal prometheus.Counter

	// ingest_batch_commit_failures_total - counter for failed commits
	CommitFailuresTotal prometheus.Counter

	// ingest_batches_dropped_total - counter for batches lost after a
	// failed re-queue
	BatchesDroppedTotal prometheus.Counter

	// ingest_queue_depth - gauge for buffer_length + worker_buffer_size
	QueueDepth prometheus.Gauge

	// ingest_worker_buffer_size - gauge for the coordinator's staging size
	WorkerBufferSize prometheus.Gauge

	// ingest_current_rps - gauge mirroring the RPS estimator
	CurrentRPS prometheus.Gauge

	// ingest_batch_commit_duration_seconds - histogram for commit latency
	BatchCommitDuration prometheus.Histogram

	// ingest_observer_sessions - gauge for connected broadcaster sessions
	ObserverSessions prometheus.Gauge
}

// New creates and registers all prometheus metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		MessagesIngestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Total number of messages accepted at the ingestion endpoint",
		}),

		BatchesCommittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_batches_committed_total",
			Help: "Total number of batches committed to the relational store",
		}),

		CommitFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_batch_commit_failures_total",
			Help: "Total number of failed bulk-insert attempts",
		}),

		BatchesDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_batches_dropped_total",
			Help: "Total number of batches lost after a failed re-queue",
		}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_queue_depth",
			Help: "buffer_length + worker_buffer_size, as last observed",
		}),

		WorkerBufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_worker_buffer_size",
			Help: "Current number of messages held in the coordinator's staging area",
		}),

		CurrentRPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_current_rps",
			Help: "Rolling estimate of committed messages per second",
		}),

		BatchCommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_batch_commit_duration_seconds",
			Help:    "Duration of bulk-insert commits in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),

		ObserverSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_observer_sessions",
			Help: "Current number of connected Telemetry Broadcaster sessions",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestDuration,
		m.MessagesIngestedTotal,
		m.BatchesCommittedTotal,
		m.CommitFailuresTotal,
		m.BatchesDroppedTotal,
		m.QueueDepth,
		m.WorkerBufferSize,
		m.CurrentRPS,
		m.BatchCommitDuration,
		m.ObserverSessions,
	)

	return m
}

// RecordHTTPRequest records the duration of an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
}

// RecordMessagesIngested increments the ingested-message counter by n.
func (m *Metrics) RecordMessagesIngested(n int) {
	m.MessagesIngestedTotal.Add(float64(n))
}

// RecordBatchCommitted records a successful commit of the given size and
// duration.
func (m *Metrics) RecordBatchCommitted(size int, durationSeconds float64) {
	m.BatchesCommittedTotal.Inc()
	m.BatchCommitDuration.Observe(durationSeconds)
}

// RecordCommitFailure increments the commit-failure counter.
func (m *Metrics) RecordCommitFailure() {
	m.CommitFailuresTotal.Inc()
}

// RecordBatchDropped increments the dropped-batch counter.
func (m *Metrics) RecordBatchDropped() {
	m.BatchesDroppedTotal.Inc()
}

// SetQueueDepth sets the combined queue-depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// SetWorkerBufferSize sets the staging-area size gauge.
func (m *Metrics) SetWorkerBufferSize(size int) {
	m.WorkerBufferSize.Set(float64(size))
}

// SetCurrentRPS sets the RPS gauge.
func (m *Metrics) SetCurrentRPS(rps float64) {
	m.CurrentRPS.Set(rps)
}

// IncObserverSessions bumps the connected-session gauge by delta
// (typically +1 on connect, -1 on disconnect).
func (m *Metrics) IncObserverSessions(delta float64) {
	m.ObserverSessions.Add(delta)
}
