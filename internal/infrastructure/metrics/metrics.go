// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts handled HTTP requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocolo",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Handled HTTP requests.",
	}, []string{"method", "path", "status"})

	// HTTPDuration observes request latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "protocolo",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// NumbersReserved counts document numbers allocated.
	NumbersReserved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "protocolo",
		Name:      "numbers_reserved_total",
		Help:      "Document numbers reserved.",
	})

	// NumbersIssued counts RESERVED → ISSUED transitions.
	NumbersIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "protocolo",
		Name:      "numbers_issued_total",
		Help:      "Document numbers issued.",
	})

	// NumbersVoided counts transitions into the terminal VOIDED state.
	NumbersVoided = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "protocolo",
		Name:      "numbers_voided_total",
		Help:      "Document numbers voided.",
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
