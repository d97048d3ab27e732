// Package metrics exposes Prometheus counters for the data-access layer
// and the screening pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts fresh cache reads per dataset.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_cache_hits_total",
		Help: "Cache hits by dataset",
	}, []string{"dataset"})

	// CacheMisses counts absent or expired cache reads per dataset.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_cache_misses_total",
		Help: "Cache misses (absent, expired or corrupt) by dataset",
	}, []string{"dataset"})

	// UpstreamCalls counts attempted upstream fetches per dataset.
	UpstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_upstream_calls_total",
		Help: "Upstream fetch attempts by dataset",
	}, []string{"dataset"})

	// UpstreamErrors counts failed upstream attempts per dataset.
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_upstream_errors_total",
		Help: "Upstream fetch failures by dataset",
	}, []string{"dataset"})

	// RetriesExhausted counts fetches that degraded to an empty payload.
	RetriesExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_retries_exhausted_total",
		Help: "Fetches that exhausted their retry budget by dataset",
	}, []string{"dataset"})

	// ScreeningRuns counts pipeline runs by terminal outcome.
	ScreeningRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_runs_total",
		Help: "Screening runs by outcome (completed, failed, superseded)",
	}, []string{"outcome"})
)
