// Package metrics holds the Prometheus collectors for the review console.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BackendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreview_backend_requests_total",
			Help: "Backend requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	BackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adreview_backend_request_duration_seconds",
			Help:    "Backend request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	AITriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreview_ai_triggers_total",
			Help: "AI review triggers by outcome (dispatched, failed, refused)",
		},
		[]string{"outcome"},
	)

	ManualReviews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreview_manual_reviews_total",
			Help: "Manual review submissions by decision and outcome",
		},
		[]string{"decision", "outcome"},
	)

	Refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreview_refreshes_total",
			Help: "Collection refreshes by reason and outcome",
		},
		[]string{"reason", "outcome"},
	)

	Materials = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adreview_materials",
			Help: "Materials in the loaded collection by review status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		BackendRequests,
		BackendDuration,
		AITriggers,
		ManualReviews,
		Refreshes,
		Materials,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome folds an error into an outcome label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveBackend records one backend round trip.
func ObserveBackend(op string, err error, d time.Duration) {
	BackendRequests.WithLabelValues(op, Outcome(err)).Inc()
	BackendDuration.WithLabelValues(op).Observe(d.Seconds())
}
