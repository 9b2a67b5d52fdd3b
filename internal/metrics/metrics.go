// Package metrics holds the Prometheus collectors exported on /metrics.
// Collectors are package-level so every service and the HTTP middleware
// share one registration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qist_orders_created_total",
		Help: "Total number of orders created",
	})
	DuplicateOrdersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qist_orders_duplicate_rejected_total",
		Help: "Order submissions rejected by same-day duplicate suppression",
	})
	Assignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qist_order_assignments_total",
		Help: "Orders assigned or unassigned, by mode (single, bulk, auto) and action",
	}, []string{"mode", "action"})
	VerificationsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qist_verifications_completed_total",
		Help: "Verifications marked completed",
	})
	VerificationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qist_verification_decisions_total",
		Help: "Admin approval decisions on completed verifications",
	}, []string{"decision"})
	DocumentsUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qist_documents_uploaded_total",
		Help: "Verification documents stored, by document type",
	}, []string{"document_type"})
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qist_notifications_total",
		Help: "Assignment notifications by channel (push, email) and outcome",
	}, []string{"channel", "outcome"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qist_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status class",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route", "status"})
)

// ObserveRequest records an HTTP request. Call with time.Now() taken
// before the handler chain ran.
func ObserveRequest(method, route, status string, start time.Time) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
}
