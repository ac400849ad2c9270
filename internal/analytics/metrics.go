package analytics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal          *prometheus.CounterVec
	requestDurationBuckets *prometheus.HistogramVec
)

// InitMetrics registers the Prometheus collectors fed by LogUsage. Call
// once at startup; when skipped (e.g. in library use or tests) LogUsage
// simply does not observe.
func InitMetrics() {
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagelens",
			Name:      "requests_total",
			Help:      "Total number of logged API requests.",
		},
		[]string{"tenant", "endpoint", "method", "status"},
	)
	requestDurationBuckets = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "usagelens",
			Name:      "request_duration_seconds",
			Help:      "Histogram of logged API request durations in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"tenant", "endpoint", "method"},
	)
	prometheus.MustRegister(requestsTotal, requestDurationBuckets)
}

func observeRequest(tenant string, sample RequestSample) {
	if requestsTotal == nil {
		return
	}
	requestsTotal.WithLabelValues(tenant, sample.Endpoint, sample.Method, strconv.Itoa(sample.StatusCode)).Inc()
	requestDurationBuckets.WithLabelValues(tenant, sample.Endpoint, sample.Method).
		Observe(sample.ResponseTimeMs / 1000.0)
}
