package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// remoteUp reports whether the remote backend is ready (1) or not (0).
	remoteUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hybridcache_remote_up",
			Help: "Whether the remote cache backend is currently ready",
		},
	)

	// remoteErrors tracks remote operation failures by operation.
	remoteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridcache_remote_errors_total",
			Help: "Total number of remote cache operation failures",
		},
		[]string{"operation"}, // "connect", "get", "mget", "set", "delete"
	)

	// remoteReconnects tracks failed reconnect attempts.
	remoteReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hybridcache_remote_reconnect_attempts_total",
			Help: "Total number of failed reconnect attempts to the remote cache",
		},
	)
)
