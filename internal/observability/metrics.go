package observability

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every custom metric the API and the worker export
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Auth Metrics
	AuthAttemptsTotal *prometheus.CounterVec

	// Task Metrics
	TaskOperationsTotal *prometheus.CounterVec

	// Database Metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge

	// Cache (Redis) Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Queue (RabbitMQ) Metrics
	QueueMessagesPublished *prometheus.CounterVec
	QueueMessagesConsumed  *prometheus.CounterVec
	QueuePublishFailures   *prometheus.CounterVec
	EventsFailedTotal      *prometheus.CounterVec
}

// NewMetrics registers all metrics with the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		AuthAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of register, login and refresh attempts",
			},
			[]string{"action", "result"}, // result: success, failed
		),

		TaskOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_operations_total",
				Help: "Total number of task operations",
			},
			[]string{"operation"}, // create, list, get, update, delete
		),

		DBConnectionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_open",
				Help: "Number of open database connections",
			},
		),

		DBConnectionsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_in_use",
				Help: "Number of database connections currently in use",
			},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_type"},
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_type"},
		),

		QueueMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_published_total",
				Help: "Total number of messages published to the queue",
			},
			[]string{"queue_name"},
		),

		QueueMessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_consumed_total",
				Help: "Total number of messages consumed from the queue",
			},
			[]string{"queue_name"},
		),

		QueuePublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_publish_failures_total",
				Help: "Total number of messages that could not be published",
			},
			[]string{"queue_name"},
		),

		EventsFailedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_events_failed_total",
				Help: "Total number of task events the worker failed to record",
			},
			[]string{"action", "error_type"},
		),
	}
}

// GlobalMetrics is the process-wide instance registered with the default registry
var GlobalMetrics *Metrics

// InitMetrics initializes GlobalMetrics
func InitMetrics() {
	GlobalMetrics = NewMetrics(prometheus.DefaultRegisterer)
}

// The helpers below tolerate a nil *Metrics so packages can be used without
// metrics wired in (tests, tools).

func (m *Metrics) TaskOperation(operation string) {
	if m == nil {
		return
	}
	m.TaskOperationsTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) AuthAttempt(action string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failed"
	}
	m.AuthAttemptsTotal.WithLabelValues(action, result).Inc()
}

func (m *Metrics) CacheLookup(keyType string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(keyType).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(keyType).Inc()
}

func (m *Metrics) Published(queueName string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.QueuePublishFailures.WithLabelValues(queueName).Inc()
		return
	}
	m.QueueMessagesPublished.WithLabelValues(queueName).Inc()
}

func (m *Metrics) Consumed(queueName string) {
	if m == nil {
		return
	}
	m.QueueMessagesConsumed.WithLabelValues(queueName).Inc()
}

func (m *Metrics) EventFailed(action, errorType string) {
	if m == nil {
		return
	}
	m.EventsFailedTotal.WithLabelValues(action, errorType).Inc()
}

// CollectDBStats samples connection pool stats until ctx is done
func (m *Metrics) CollectDBStats(ctx context.Context, db *sql.DB, interval time.Duration) {
	if m == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stats := db.Stats()
		m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
		m.DBConnectionsInUse.Set(float64(stats.InUse))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
