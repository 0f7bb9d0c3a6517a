package agents

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpgforge_ai_requests_total",
			Help: "Total number of requests to the model backend.",
		},
		[]string{"provider", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpgforge_ai_request_duration_seconds",
			Help:    "Histogram of model backend request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

func observeRequest(provider, status string, d time.Duration) {
	aiRequestsTotal.With(prometheus.Labels{"provider": provider, "status": status}).Inc()
	aiRequestDuration.With(prometheus.Labels{"provider": provider}).Observe(d.Seconds())
}
