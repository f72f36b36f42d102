// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "widget_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SubmissionsTotal counts finished submissions by outcome.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_submissions_total",
			Help: "Finished widget submissions by outcome",
		},
		[]string{"outcome"},
	)

	// SubmissionsRejected counts submissions refused before any network call.
	SubmissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_submissions_rejected_total",
			Help: "Widget submissions rejected before sending",
		},
		[]string{"reason"},
	)

	// ChatAPIDuration tracks round trips to the remote chat endpoint.
	ChatAPIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_api_request_duration_seconds",
			Help:    "Remote chat endpoint round-trip duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)

	// LeadsCaptured counts replies carrying lead contact fields.
	LeadsCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "widget_leads_captured_total",
			Help: "Replies classified as lead capture with contact fields",
		},
	)

	// SessionsActive tracks widget sessions held in memory.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "widget_sessions_active",
			Help: "Number of widget sessions held in memory",
		},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "widget_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordSubmission records a finished submission and its remote round trip.
func RecordSubmission(outcome string, duration float64) {
	SubmissionsTotal.WithLabelValues(outcome).Inc()
	ChatAPIDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordRejected records a submission refused before sending.
func RecordRejected(reason string) {
	SubmissionsRejected.WithLabelValues(reason).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
