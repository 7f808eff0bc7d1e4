// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "devlog"

// Image outcomes.
const (
	ImageServed    = "served"
	ImageNotFound  = "not_found"
	ImageForbidden = "forbidden"
	ImageError     = "error"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ImageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_requests_total",
			Help:      "Image requests by outcome",
		},
		[]string{"outcome"},
	)

	// DatabaseUp is 1 when the last health check reached the database.
	DatabaseUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_up",
			Help:      "Database connectivity (1 = connected, 0 = disconnected)",
		},
	)
)

func RecordRequest(method, route string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func RecordImage(outcome string) {
	ImageRequestsTotal.WithLabelValues(outcome).Inc()
}

func SetDatabaseUp(up bool) {
	if up {
		DatabaseUp.Set(1)
		return
	}
	DatabaseUp.Set(0)
}
