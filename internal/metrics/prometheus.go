package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the HTTP surface and the generation pipeline.
var (
	GenerationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menu_planner_generation_attempts_total",
		Help: "Generation requests by agent and outcome.",
	}, []string{"agent", "outcome"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "menu_planner_generation_duration_seconds",
		Help:    "Generation call latency by agent.",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menu_planner_http_requests_total",
		Help: "HTTP requests by route and status class.",
	}, []string{"route", "status"})
)
