// Package remote provides the client to the shared Redis cache service.
// It owns the connection lifecycle: bounded connect attempts, a
// readiness flag, and an autonomous reconnect loop with additive-capped
// backoff. All transport and protocol failures collapse into a single
// ErrUnavailable so callers never branch on error subtypes.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrUnavailable is returned for any failure while talking to the
// remote cache service, regardless of cause.
var ErrUnavailable = errors.New("remote cache unavailable")

// DefaultConnectTimeout bounds a single connect attempt.
const DefaultConnectTimeout = 5 * time.Second

// Config holds the adapter configuration.
type Config struct {
	// Addr is the address of the remote cache service (host:port).
	Addr string

	// ConnectTimeout bounds a single connect attempt.
	ConnectTimeout time.Duration

	// Backoff is the reconnect schedule.
	Backoff BackoffConfig

	// OnUp is invoked each time the adapter becomes ready, including
	// the initial connect. Called from the reconnect goroutine.
	OnUp func()
}

// Adapter is the client to the remote cache service.
// The underlying connection handle is never exposed.
type Adapter struct {
	client  *redis.Client
	cfg     Config
	logger  zerolog.Logger
	ready   atomic.Bool
	redial  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	closed  atomic.Bool
}

// NewAdapter creates an adapter for the cache service at cfg.Addr.
// No connection is attempted until Start or Connect is called.
func NewAdapter(cfg Config, logger zerolog.Logger) *Adapter {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = DefaultBackoffConfig()
	}
	return &Adapter{
		client: redis.NewClient(&redis.Options{
			Addr:        cfg.Addr,
			DialTimeout: cfg.ConnectTimeout,
		}),
		cfg:    cfg,
		logger: logger,
		redial: make(chan struct{}, 1),
	}
}

// Ready reports whether the remote backend is currently usable.
func (a *Adapter) Ready() bool {
	return a.ready.Load()
}

// Connect performs a single bounded connect attempt. On success the
// adapter marks itself ready; on failure it stays not-ready and the
// error is reported as ErrUnavailable.
func (a *Adapter) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	defer cancel()

	if err := a.client.Ping(ctx).Err(); err != nil {
		remoteErrors.WithLabelValues("connect").Inc()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	a.ready.Store(true)
	remoteUp.Set(1)
	if a.cfg.OnUp != nil {
		a.cfg.OnUp()
	}
	return nil
}

// Start launches the autonomous reconnect loop, beginning with an
// immediate connect attempt. Calling Start more than once is a no-op.
func (a *Adapter) Start() {
	if !a.started.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(1)
	go a.reconnectLoop(ctx)
}

// reconnectLoop keeps the adapter connected. While ready it waits for a
// down signal; while down it retries per the backoff schedule. The loop
// never blocks foreground operations.
func (a *Adapter) reconnectLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		if a.Ready() {
			select {
			case <-ctx.Done():
				return
			case <-a.redial:
			}
		}

		for attempt := 0; ; attempt++ {
			if err := a.Connect(ctx); err == nil {
				a.logger.Info().
					Str("addr", a.cfg.Addr).
					Int("attempts", attempt+1).
					Msg("Remote cache connected")
				// Drain a stale down signal raced in before readiness.
				select {
				case <-a.redial:
				default:
				}
				break
			}
			if ctx.Err() != nil {
				return
			}

			remoteReconnects.Inc()
			delay := a.cfg.Backoff.Delay(attempt)
			a.logger.Debug().
				Str("addr", a.cfg.Addr).
				Int("attempt", attempt+1).
				Dur("next_in", delay).
				Msg("Remote cache connect failed")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

// markDown flips the adapter to not-ready and wakes the reconnect loop.
func (a *Adapter) markDown() {
	if a.ready.CompareAndSwap(true, false) {
		remoteUp.Set(0)
	}
	select {
	case a.redial <- struct{}{}:
	default:
	}
}

// fail records an operation failure, triggers reconnection and returns
// the generic unavailable error.
func (a *Adapter) fail(op string, err error) error {
	remoteErrors.WithLabelValues(op).Inc()
	a.markDown()
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Get returns the value for key. A missing key is a miss, not an error.
func (a *Adapter) Get(ctx context.Context, key string) (string, bool, error) {
	if !a.Ready() {
		return "", false, ErrUnavailable
	}

	val, err := a.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, a.fail("get", err)
	}
	return val, true, nil
}

// MGet returns one element per key, positionally aligned with keys.
// Missing keys yield nil elements.
func (a *Adapter) MGet(ctx context.Context, keys []string) ([]*string, error) {
	if !a.Ready() {
		return nil, ErrUnavailable
	}
	if len(keys) == 0 {
		return []*string{}, nil
	}

	vals, err := a.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, a.fail("mget", err)
	}

	out := make([]*string, len(keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = &s
		}
	}
	return out, nil
}

// Set stores value under key. A non-positive ttl stores without expiry.
func (a *Adapter) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !a.Ready() {
		return ErrUnavailable
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := a.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return a.fail("set", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	if !a.Ready() {
		return ErrUnavailable
	}

	if err := a.client.Del(ctx, key).Err(); err != nil {
		return a.fail("delete", err)
	}
	return nil
}

// Close stops the reconnect loop and releases the remote session.
// Close is idempotent and tolerates never having connected.
func (a *Adapter) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	a.ready.Store(false)
	remoteUp.Set(0)
	return a.client.Close()
}
