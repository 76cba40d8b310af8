// Package testutil provides shared helpers for tests that need a
// Redis endpoint. Unit tests run against miniredis; real-Redis
// coverage lives in tests/integration.
package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/hybrid-kv-cache/pkg/remote"
)

// StartRedis starts an in-process Redis server that is shut down when
// the test finishes.
func StartRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

// FastBackoff returns a reconnect schedule tight enough for tests to
// observe recovery without long sleeps.
func FastBackoff() remote.BackoffConfig {
	return remote.BackoffConfig{
		FastAttempts: 3,
		FastDelay:    10 * time.Millisecond,
		Step:         10 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
	}
}

// NopLogger returns a logger that discards everything.
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}
