package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estate_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key prefix and outcome.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estate_cache_lookups_total",
		Help: "Cache lookups by key prefix and result (hit, miss, error)",
	}, []string{"prefix", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "estate_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ServiceOperations counts service operations by outcome code.
	ServiceOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estate_service_operations_total",
		Help: "Service operations by service, operation and result code",
	}, []string{"service", "operation", "code"})

	// ServiceLatency records service operation latency.
	ServiceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "estate_service_operation_seconds",
		Help:    "Service operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation"})

	// SalesCompleted counts successful sales.
	SalesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estate_sales_completed_total",
		Help: "Total number of properties sold",
	})

	// AuditEntries counts activity audit entries by outcome
	// (persisted, dropped, failed, rejected).
	AuditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estate_audit_entries_total",
		Help: "Activity audit entries by outcome",
	}, []string{"outcome"})

	// AuditQueueDepth is the number of audit entries waiting to be persisted.
	AuditQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "estate_audit_queue_depth",
		Help: "Activity audit entries waiting to be persisted",
	})

	// EventsPublished counts domain events by sink and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estate_events_published_total",
		Help: "Domain events published by sink and result",
	}, []string{"sink", "result"})

	// RateLimitDecisions counts per-route limiter outcomes
	// (allowed, rejected, store_error).
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estate_rate_limit_decisions_total",
		Help: "Rate limit decisions by route and result",
	}, []string{"route", "result"})

	// MailSent counts outgoing mail by result.
	MailSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estate_mail_sent_total",
		Help: "Outgoing mail by result",
	}, []string{"result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveServiceCall records one service operation.
func ObserveServiceCall(service, operation, code string, start time.Time) {
	ServiceOperations.WithLabelValues(service, operation, code).Inc()
	ServiceLatency.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}
