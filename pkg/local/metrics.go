package local

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// localEntries tracks the current number of entries in the store.
	localEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hybridcache_local_entries",
			Help: "Current number of entries in the local store",
		},
	)

	// localEvictions tracks capacity-triggered LRU evictions.
	localEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hybridcache_local_evictions_total",
			Help: "Total number of LRU evictions from the local store",
		},
	)

	// localExpired tracks TTL removals by mechanism.
	localExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridcache_local_expired_total",
			Help: "Total number of expired entries removed from the local store",
		},
		[]string{"mechanism"}, // "lazy", "sweep"
	)
)
