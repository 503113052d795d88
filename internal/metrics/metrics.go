// Package metrics provides Prometheus metrics for the wiremsg server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled HTTP requests by route template and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiremsg_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration tracks HTTP request latency by route template.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wiremsg_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// MessagesSent counts persisted messages, split by root or reply.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiremsg_messages_sent_total",
			Help: "Total number of messages persisted",
		},
		[]string{"kind"},
	)

	// MessageEdits counts content-changing message edits.
	MessageEdits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wiremsg_message_edits_total",
			Help: "Total number of message edits that recorded history",
		},
	)

	// EditConflicts counts edits that lost a concurrent compare-and-set.
	EditConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wiremsg_message_edit_conflicts_total",
			Help: "Total number of message edits rejected as conflicting",
		},
	)

	// RateLimited counts submissions rejected by the rate limiter.
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wiremsg_rate_limited_total",
			Help: "Total number of submissions rejected by the rate limiter",
		},
	)

	// ThreadBuildSize tracks how many messages each thread build assembles.
	ThreadBuildSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wiremsg_thread_build_messages",
			Help:    "Number of messages assembled per thread build",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

// RecordMessageSent increments the sent counter for a root message or a reply.
func RecordMessageSent(reply bool) {
	kind := "root"
	if reply {
		kind = "reply"
	}
	MessagesSent.WithLabelValues(kind).Inc()
}
