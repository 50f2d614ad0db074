// Package metrics provides Prometheus metrics for the recicla service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Domain metrics
	teamsCreated    prometheus.Counter
	teamCount       prometheus.Gauge
	eventsRecorded  *prometheus.CounterVec
	pointsAwarded   prometheus.Counter
	resets          prometheus.Counter
	deletes         prometheus.Counter
	duplicateSubmit prometheus.Counter

	// Invalidation and views
	busEmits      prometheus.Counter
	busListeners  prometheus.Gauge
	viewReloads   *prometheus.CounterVec
	viewDiscarded *prometheus.CounterVec

	// Mutation queue
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueEnqueued   prometheus.Counter
	queueRejected   *prometheus.CounterVec
	mutationLatency *prometheus.HistogramVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "recicla",
		subsystem:        "core",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.teamsCreated = m.counter("teams_created_total", "Total number of teams created")
	m.teamCount = m.gauge("teams", "Current number of teams")
	m.eventsRecorded = m.counterVec("recycling_events_total", "Recycling events recorded by material", "material")
	m.pointsAwarded = m.counter("points_awarded_total", "Points awarded through recycling events")
	m.resets = m.counter("point_resets_total", "Number of full point resets")
	m.deletes = m.counter("team_deletions_total", "Number of delete-all-teams operations")
	m.duplicateSubmit = m.counter("duplicate_submissions_total", "Register requests answered from the idempotency window")

	m.busEmits = m.counter("invalidation_emits_total", "Store-changed broadcasts emitted")
	m.busListeners = m.gauge("invalidation_listeners", "Listeners currently subscribed to the invalidation bus")
	m.viewReloads = m.counterVec("view_reloads_total", "View reloads applied", "view")
	m.viewDiscarded = m.counterVec("view_reloads_discarded_total", "View reloads discarded because the view changed activation", "view")

	m.queueSize = m.gauge("mutation_queue_size", "Mutations waiting for the single writer")
	m.queueCapacity = m.gauge("mutation_queue_capacity", "Capacity of the mutation queue")
	m.queueEnqueued = m.counter("mutation_queue_enqueued_total", "Mutations accepted by the queue")
	m.queueRejected = m.counterVec("mutation_queue_rejected_total", "Mutations rejected by the queue", "reason")
	m.mutationLatency = m.histogramVec("mutation_latency_milliseconds", "End-to-end latency of a mutation on the writer", "op")

	m.storeLatency = m.histogramVec("store_operation_latency_milliseconds", "Key/value store operation latency", "backend", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Key/value store failures", "backend", "op")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordTeamCreated increments the teams created counter.
func RecordTeamCreated() { globalManager.teamsCreated.Inc() }

// UpdateTeamCount sets the current number of teams.
func UpdateTeamCount(n int) { globalManager.teamCount.Set(float64(n)) }

// RecordRecyclingEvent counts one recorded event and the points it awarded.
func RecordRecyclingEvent(material string, points int) {
	globalManager.eventsRecorded.WithLabelValues(material).Inc()
	globalManager.pointsAwarded.Add(float64(points))
}

// RecordReset counts a reset of every team's points.
func RecordReset() { globalManager.resets.Inc() }

// RecordDeleteAll counts a delete-all-teams operation.
func RecordDeleteAll() { globalManager.deletes.Inc() }

// RecordDuplicateSubmission counts a register request served from the idempotency window.
func RecordDuplicateSubmission() { globalManager.duplicateSubmit.Inc() }

// RecordBusEmit counts an invalidation broadcast.
func RecordBusEmit() { globalManager.busEmits.Inc() }

// UpdateBusListeners sets the number of invalidation listeners.
func UpdateBusListeners(n int) { globalManager.busListeners.Set(float64(n)) }

// RecordViewReload counts a reload applied by view.
func RecordViewReload(view string) { globalManager.viewReloads.WithLabelValues(view).Inc() }

// RecordViewDiscard counts a reload result dropped by the activation guard.
func RecordViewDiscard(view string) { globalManager.viewDiscarded.WithLabelValues(view).Inc() }

// UpdateQueueSize sets the number of queued mutations.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the mutation queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an accepted mutation.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueRejected counts a rejected mutation by reason.
func RecordQueueRejected(reason string) { globalManager.queueRejected.WithLabelValues(reason).Inc() }

// RecordMutationLatency records how long op took on the writer.
func RecordMutationLatency(op string, latencyMs float64) {
	globalManager.mutationLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreOperation records the latency of a store call.
func RecordStoreOperation(backend, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreError counts a failed store call.
func RecordStoreError(backend, op string) {
	globalManager.storeErrors.WithLabelValues(backend, op).Inc()
	globalManager.errorsByComponent.WithLabelValues("store", op).Inc()
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
