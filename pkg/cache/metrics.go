package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks hits by serving backend.
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridcache_hits_total",
			Help: "Total number of cache hits by backend",
		},
		[]string{"backend"}, // "remote", "local"
	)

	// cacheMisses tracks misses by serving backend.
	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridcache_misses_total",
			Help: "Total number of cache misses by backend",
		},
		[]string{"backend"},
	)

	// fallbackTransitions counts demotions to local-fallback mode.
	fallbackTransitions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hybridcache_fallback_transitions_total",
			Help: "Total number of transitions to local-fallback mode",
		},
	)

	// modeGauge reports the active backend (1 = remote, 0 = local).
	modeGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hybridcache_mode",
			Help: "Current backend mode (1 = remote active, 0 = local fallback)",
		},
	)

	// sweepsTotal counts expiry sweep runs.
	sweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hybridcache_sweeps_total",
			Help: "Total number of local store expiry sweeps",
		},
	)
)
