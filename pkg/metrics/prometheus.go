// Package metrics provides Prometheus metrics for the muster matchmaking core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the matchmaking core.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Matching metrics
	matchRuns       *prometheus.CounterVec
	matchFallbacks  prometheus.Counter
	matchesNotReady prometheus.Counter
	matchingLatency prometheus.Histogram
	staleEntries    prometheus.Counter
	membersRemoved  *prometheus.CounterVec

	// Session metrics
	warningsIssued   prometheus.Counter
	proxyEscalations prometheus.Counter
	dropInsSeated    prometheus.Counter
	liveSessions     prometheus.Gauge

	// Event persistence metrics
	eventsPersisted prometheus.Counter
	persistErrors   prometheus.Counter
	persistLatency  prometheus.Histogram

	// Queue metrics
	queueEnqueues      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	queueDequeues      prometheus.Counter
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	workerCount        prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewMetricsManager(WithPrometheusRegistry(customRegistry))
}

// Registry exposes the process registry so a host can serve or gather it.
func Registry() *prometheus.Registry {
	return customRegistry
}

// NewMetricsManager creates a new metrics manager with default configuration.
func NewMetricsManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "muster",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  30 * time.Second,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.matchRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "match_runs_total",
		Help:      "Total matching runs by mode",
	}, []string{"mode"})

	m.matchFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "match_fallbacks_total",
		Help:      "Total runs resolved by the exact-fit safe fallback",
	})

	m.matchesNotReady = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "matches_not_ready_total",
		Help:      "Total matching runs that left role slots unfilled",
	})

	m.matchingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "matching_latency_milliseconds",
		Help:      "Matching run latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.staleEntries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "stale_queue_entries_total",
		Help:      "Total queue entries excluded from matching as stale",
	})

	m.membersRemoved = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "members_removed_total",
		Help:      "Total members removed during assignment sanitization, by reason",
	}, []string{"reason"})

	m.warningsIssued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "warnings_issued_total",
		Help:      "Total inactivity warnings issued across sessions",
	})

	m.proxyEscalations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "proxy_escalations_total",
		Help:      "Total owners escalated to proxy control",
	})

	m.dropInsSeated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "drop_ins_seated_total",
		Help:      "Total drop-in participants seated into sessions",
	})

	m.liveSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "live_sessions",
		Help:      "Current number of sessions in the registry",
	})

	m.eventsPersisted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "events_persisted_total",
		Help:      "Total timeline events written to the event store",
	})

	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "persist_errors_total",
		Help:      "Total failed timeline event writes",
	})

	m.persistLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "persist_latency_milliseconds",
		Help:      "Event persistence latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_enqueues_total",
		Help:      "Total events accepted by the event queue",
	})

	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_enqueue_errors_total",
		Help:      "Total rejected enqueues, by reason",
	}, []string{"reason"})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_dequeues_total",
		Help:      "Total events handed to persistence workers",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_size",
		Help:      "Current size of the event queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_capacity",
		Help:      "Configured capacity of the event queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_utilization",
		Help:      "Event queue fill ratio between 0 and 1",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "worker_count",
		Help:      "Current number of persistence workers",
	})
}

// RecordMatchRun counts one matching run for a mode.
func RecordMatchRun(mode string) {
	if globalManager.enabled {
		globalManager.matchRuns.WithLabelValues(mode).Inc()
	}
}

// RecordMatchFallback counts a run resolved by the safe fallback.
func RecordMatchFallback() {
	if globalManager.enabled {
		globalManager.matchFallbacks.Inc()
	}
}

// RecordMatchNotReady counts a run that left slots unfilled.
func RecordMatchNotReady() {
	if globalManager.enabled {
		globalManager.matchesNotReady.Inc()
	}
}

// RecordMatchingLatency observes one matching run duration in milliseconds.
func RecordMatchingLatency(ms float64) {
	if globalManager.enabled {
		globalManager.matchingLatency.Observe(ms)
	}
}

// RecordStaleEntries counts queue entries excluded as stale.
func RecordStaleEntries(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.staleEntries.Add(float64(n))
	}
}

// RecordMemberRemoved counts one sanitizer removal by reason.
func RecordMemberRemoved(reason string) {
	if globalManager.enabled {
		globalManager.membersRemoved.WithLabelValues(reason).Inc()
	}
}

// RecordWarningIssued counts one inactivity warning.
func RecordWarningIssued() {
	if globalManager.enabled {
		globalManager.warningsIssued.Inc()
	}
}

// RecordProxyEscalation counts one escalation to proxy control.
func RecordProxyEscalation() {
	if globalManager.enabled {
		globalManager.proxyEscalations.Inc()
	}
}

// RecordDropInSeated counts one seated drop-in participant.
func RecordDropInSeated() {
	if globalManager.enabled {
		globalManager.dropInsSeated.Inc()
	}
}

// UpdateLiveSessions sets the live session gauge.
func UpdateLiveSessions(n int) {
	if globalManager.enabled {
		globalManager.liveSessions.Set(float64(n))
	}
}

// RecordEventPersisted counts one stored timeline event.
func RecordEventPersisted() {
	if globalManager.enabled {
		globalManager.eventsPersisted.Inc()
	}
}

// RecordPersistError counts one failed store write.
func RecordPersistError() {
	if globalManager.enabled {
		globalManager.persistErrors.Inc()
	}
}

// RecordPersistLatency observes one store write duration in milliseconds.
func RecordPersistLatency(ms float64) {
	if globalManager.enabled {
		globalManager.persistLatency.Observe(ms)
	}
}

// RecordQueueEnqueue counts one accepted enqueue.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueues.Inc()
	}
}

// RecordQueueEnqueueError counts one rejected enqueue by reason.
func RecordQueueEnqueueError(reason string) {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
	}
}

// RecordQueueDequeue counts one event handed to a worker.
func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeues.Inc()
	}
}

// UpdateQueueSize sets the queue size gauge.
func UpdateQueueSize(n int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(n))
	}
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(n int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(n))
	}
}

// UpdateQueueUtilization sets the queue fill ratio gauge.
func UpdateQueueUtilization(ratio float64) {
	if globalManager.enabled {
		globalManager.queueUtilization.Set(ratio)
	}
}

// UpdateWorkerCount sets the worker count gauge.
func UpdateWorkerCount(n int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(n))
	}
}
