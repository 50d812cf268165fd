// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangku_api_requests_total",
			Help: "Total HTTP requests by method, route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barangku_api_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ItemOperations counts successful item mutations by operation (create, update, delete).
	ItemOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangku_item_operations_total",
			Help: "Successful item mutations by operation.",
		},
		[]string{"operation"},
	)

	ImagesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "barangku_images_stored_total",
			Help: "Images written to storage.",
		},
	)

	// ImageDeletions counts storage removals by result (ok, failed).
	ImageDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangku_image_deletions_total",
			Help: "Image removals from storage by result.",
		},
		[]string{"result"},
	)
)

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordImageDeletion records one storage removal attempt.
func RecordImageDeletion(err error) {
	if err != nil {
		ImageDeletions.WithLabelValues("failed").Inc()
		return
	}
	ImageDeletions.WithLabelValues("ok").Inc()
}
