// internal/common/metrics/metrics.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncg_requests_total",
			Help: "Total number of configuration requests by output type and terminal outcome",
		},
		[]string{"output_type", "outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ncg_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"stage"},
	)

	DeliveryResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncg_delivery_responses_total",
			Help: "Downstream responses received by the http output channel, by status class",
		},
		[]string{"status_class"},
	)

	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ncg_requests_in_flight",
			Help: "Number of configuration requests currently in the pipeline",
		},
	)
)

// StatusClass returns "2xx", "4xx", ... for an HTTP status code.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
