package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WWRequestsTotal tracks outbound calls to the WW APIs.
	WWRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ww_api_requests_total",
			Help: "Total number of WW API requests made (by endpoint and status).",
		},
		[]string{"endpoint", "status"},
	)

	// WWRequestDuration measures the duration of outbound WW API calls.
	WWRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ww_api_request_duration_seconds",
			Help:    "Duration of WW API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint"},
	)

	// WWPolls tracks summary poll cycles by account and outcome.
	WWPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ww_summary_polls_total",
			Help: "Number of My Day summary poll cycles (by account and result).",
		},
		[]string{"account", "result"},
	)

	// WWPoints exposes the latest polled points values per account and field.
	WWPoints = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ww_points",
			Help: "Latest WW points values (by account and field).",
		},
		[]string{"account", "field"},
	)

	// NATSPublishErrors tracks NATS publish failures by subject.
	NATSPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_publish_errors_total",
			Help: "Number of NATS publish failures by subject.",
		},
		[]string{"subject"},
	)
)

// IncWWRequest increments the WW API request counter.
func IncWWRequest(endpoint, status string) {
	WWRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// ObserveDuration records elapsed time since start into WWRequestDuration.
func ObserveDuration(endpoint string, start time.Time) {
	WWRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// IncPoll increments the poll cycle counter for an account.
func IncPoll(account, result string) {
	WWPolls.WithLabelValues(account, result).Inc()
}

// SetPoint publishes one points field for an account. A nil value removes
// the series so absent upstream fields never read as zero.
func SetPoint(account, field string, v *int) {
	if v == nil {
		WWPoints.DeleteLabelValues(account, field)
		return
	}
	WWPoints.WithLabelValues(account, field).Set(float64(*v))
}

// IncNATSPublishError increments the NATS publish error counter for the given subject.
func IncNATSPublishError(subject string) {
	NATSPublishErrors.WithLabelValues(subject).Inc()
}
