// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credence_http_requests_total",
		Help: "HTTP requests by route pattern, method and status class",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "credence_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Recomputes counts confidence replays by what triggered them.
	Recomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credence_recomputes_total",
		Help: "Confidence recomputes by trigger",
	}, []string{"trigger"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credence_verifications_total",
		Help: "Successful verifications by type",
	}, []string{"type"})

	BackfilledPriors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credence_backfilled_priors_total",
		Help: "Base priors reconstructed from posteriors, by path",
	}, []string{"path"})

	BestEffortFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credence_best_effort_failures_total",
		Help: "Non-fatal sub-operation failures by operation",
	}, []string{"operation"})

	LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "credence_lock_wait_seconds",
		Help:    "Time spent waiting for a per-hypothesis lock",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
)
