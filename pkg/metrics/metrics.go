// Package metrics provides the centralized Prometheus metrics registry
// for the hybrid cache. All metrics are defined in their respective
// packages (cache, local, remote) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the hybrid cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Facade Metrics (pkg/cache):
//   - hybridcache_hits_total{backend} (Counter): Cache hits by serving backend ("remote", "local")
//   - hybridcache_misses_total{backend} (Counter): Cache misses by serving backend
//   - hybridcache_fallback_transitions_total (Counter): Demotions to local-fallback mode
//   - hybridcache_mode (Gauge): Active backend (1 = remote, 0 = local)
//   - hybridcache_sweeps_total (Counter): Expiry sweep runs
//
// Local Store Metrics (pkg/local):
//   - hybridcache_local_entries (Gauge): Current entries in the local store
//   - hybridcache_local_evictions_total (Counter): Capacity-triggered LRU evictions
//   - hybridcache_local_expired_total{mechanism} (Counter): TTL removals ("lazy", "sweep")
//
// Remote Adapter Metrics (pkg/remote):
//   - hybridcache_remote_up (Gauge): Remote backend readiness
//   - hybridcache_remote_errors_total{operation} (Counter): Remote failures by operation
//   - hybridcache_remote_reconnect_attempts_total (Counter): Failed reconnect attempts
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(hybridcache_hits_total[5m])) /
//   (sum(rate(hybridcache_hits_total[5m])) + sum(rate(hybridcache_misses_total[5m])))
//
//   # Share of traffic served by the fallback store
//   sum(rate(hybridcache_hits_total{backend="local"}[5m])) /
//   sum(rate(hybridcache_hits_total[5m]))
//
//   # Remote outage in progress
//   hybridcache_remote_up == 0
//
//   # Local store eviction pressure
//   rate(hybridcache_local_evictions_total[5m])
