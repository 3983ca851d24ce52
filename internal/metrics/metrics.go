// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package metrics exposes the Prometheus collectors used across the service.
// Collectors register with the default registry on package init and are
// served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Contest Metrics
	ContestEnrollments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_enrollments_total",
			Help: "Enrollment attempts by outcome (accepted or the rejection code)",
		},
		[]string{"outcome"},
	)

	RatingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_submitted_total",
			Help: "Total number of ratings accepted, by star value",
		},
		[]string{"stars"},
	)

	ContestSnapshotsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_snapshots_updated_total",
			Help: "Embedded contest snapshots refreshed after a rating",
		},
	)

	ContestsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contests_closed_total",
			Help: "Total number of contests frozen",
		},
	)

	ContestWinnersSelected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_winners_selected_total",
			Help: "Total number of winning recipes across closed contests",
		},
	)

	// Notification Metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Contest result notifications by kind and result",
		},
		[]string{"kind", "result"}, // result: sent, failed, skipped
	)

	NotificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_send_duration_seconds",
			Help:    "Duration of a single notification delivery",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Scheduler Metrics
	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Duration of a contest-closing scheduler tick",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	SchedulerContestsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_contests_processed_total",
			Help: "Contests visited by the scheduler, by result",
		},
		[]string{"result"}, // closed, skipped, empty, error
	)

	SchedulerLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of the last completed scheduler tick",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events published, by topic and result",
		},
		[]string{"topic", "result"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordEnrollment counts an enrollment attempt. outcome is "accepted" or
// the error code the attempt was rejected with.
func RecordEnrollment(outcome string) {
	ContestEnrollments.WithLabelValues(outcome).Inc()
}

// RecordContestClosed counts a freeze and the winners it produced.
func RecordContestClosed(winners int) {
	ContestsClosed.Inc()
	ContestWinnersSelected.Add(float64(winners))
}

// RecordNotification counts one notification outcome.
func RecordNotification(kind, result string, duration time.Duration) {
	NotificationsTotal.WithLabelValues(kind, result).Inc()
	if result != "skipped" {
		NotificationDuration.Observe(duration.Seconds())
	}
}

// RecordSchedulerTick records the duration of a completed tick.
func RecordSchedulerTick(duration time.Duration) {
	SchedulerTickDuration.Observe(duration.Seconds())
	SchedulerLastRun.Set(float64(time.Now().Unix()))
}

// RecordEventPublish counts a publish attempt on topic.
func RecordEventPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}
