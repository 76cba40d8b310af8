package remote

import "time"

// BackoffConfig controls the reconnect schedule. The first FastAttempts
// retries use a fixed short delay so brief blips recover quickly; after
// that the delay grows additively by Step per attempt, capped at
// MaxDelay so a long outage never produces unbounded waits.
type BackoffConfig struct {
	FastAttempts int
	FastDelay    time.Duration
	Step         time.Duration
	MaxDelay     time.Duration
}

// DefaultBackoffConfig returns the default reconnect schedule.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		FastAttempts: 3,
		FastDelay:    500 * time.Millisecond,
		Step:         2 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Delay returns the pause before reconnect attempt n (zero-based).
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt < c.FastAttempts {
		return c.FastDelay
	}
	d := c.FastDelay + time.Duration(attempt-c.FastAttempts+1)*c.Step
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}
