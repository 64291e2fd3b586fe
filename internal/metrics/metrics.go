// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics declares the Prometheus collectors shared by the pipeline.
// Collectors register with the default registry; the serve command exposes
// them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound service calls
	GenerationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_generation_calls_total",
			Help: "Total number of generation service calls",
		},
		[]string{"outcome"},
	)

	GenerationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_generation_latency_seconds",
			Help:    "Generation call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	CredentialRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "research_credential_rotations_total",
			Help: "Total number of credential rotations after quota exhaustion",
		},
	)

	SearchCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_search_calls_total",
			Help: "Total number of search backend calls",
		},
		[]string{"backend", "outcome"},
	)

	RateLimiterWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_rate_limiter_wait_seconds",
			Help:    "Time spent waiting for a rate limiter slot",
			Buckets: []float64{0, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	// Agent metrics
	AgentFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_agent_fallbacks_total",
			Help: "Total number of agent operations that returned their fallback value",
		},
		[]string{"agent"},
	)

	// Improvement loop
	ImprovementIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_improvement_iterations",
			Help:    "Number of improvement loop bodies per run",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		},
	)

	SynthesisQuality = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "research_synthesis_quality",
			Help: "Overall quality of the most recent final critique",
		},
	)

	// Runs
	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_runs_total",
			Help: "Total number of orchestrator runs",
		},
		[]string{"operation", "outcome"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_run_duration_seconds",
			Help:    "Orchestrator run duration in seconds",
			Buckets: []float64{1, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"operation"},
	)

	// Cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_cache_lookups_total",
			Help: "Report cache lookups by result",
		},
		[]string{"result"},
	)
)
