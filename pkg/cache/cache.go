package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/hybrid-kv-cache/pkg/local"
	"github.com/Sternrassler/hybrid-kv-cache/pkg/logging"
	"github.com/Sternrassler/hybrid-kv-cache/pkg/remote"
)

// Mode is the cache's current choice of active backend.
type Mode string

const (
	// ModeRemoteReady routes operations to the remote cache service.
	ModeRemoteReady Mode = "remote-ready"

	// ModeLocalFallback serves all operations from the local store.
	ModeLocalFallback Mode = "local-fallback"

	// ModeInert is the state before Init and after Close.
	ModeInert Mode = "inert"
)

// Contract errors. Backend failures are never surfaced to callers.
var (
	// ErrNotInitialized is returned when an operation runs before Init.
	ErrNotInitialized = errors.New("cache not initialized")

	// ErrClosed is returned when an operation runs after Close.
	ErrClosed = errors.New("cache closed")
)

// DefaultSweepInterval is the pause between expiry sweeps of the local
// store when none is configured.
const DefaultSweepInterval = 30 * time.Second

// Result is one element of an MGet response. Found distinguishes an
// absent key from any valid string value, including "".
type Result struct {
	Value string
	Found bool
}

// Config holds the cache configuration.
type Config struct {
	// RemoteAddr is the address of the shared cache service.
	// Empty means remote is disabled and the cache starts in
	// local-fallback mode permanently.
	RemoteAddr string

	// LocalCapacity is the maximum number of entries in the local
	// store (default local.DefaultCapacity).
	LocalCapacity int

	// SweepInterval is the pause between expiry sweeps of the local
	// store (default DefaultSweepInterval).
	SweepInterval time.Duration

	// ConnectTimeout bounds a single remote connect attempt.
	ConnectTimeout time.Duration

	// Backoff is the remote reconnect schedule.
	Backoff remote.BackoffConfig
}

// DefaultConfig returns a configuration with remote at addr and
// default bounds. An empty addr disables the remote backend.
func DefaultConfig(addr string) Config {
	return Config{
		RemoteAddr:     addr,
		LocalCapacity:  local.DefaultCapacity,
		SweepInterval:  DefaultSweepInterval,
		ConnectTimeout: remote.DefaultConnectTimeout,
		Backoff:        remote.DefaultBackoffConfig(),
	}
}

// Cache is the hybrid key-value cache facade. It routes every
// operation to the remote backend while it is healthy and degrades to
// the bounded local store on any remote failure. Reconnection is
// autonomous; callers never see backend errors.
type Cache struct {
	cfg    Config
	logger zerolog.Logger
	local  *local.Store
	remote *remote.Adapter // nil when no remote is configured

	mu          sync.Mutex
	mode        Mode
	initialized bool
	closed      bool
	warned      bool // degradation warning emitted for the current outage

	sweepCancel context.CancelFunc
	sweepWG     sync.WaitGroup
}

// New creates a cache from cfg. The cache is inert until Init.
func New(cfg Config) *Cache {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	c := &Cache{
		cfg:    cfg,
		logger: logging.NewLogger("hybrid-cache"),
		local:  local.NewStore(cfg.LocalCapacity),
		mode:   ModeInert,
	}

	if cfg.RemoteAddr != "" {
		c.remote = remote.NewAdapter(remote.Config{
			Addr:           cfg.RemoteAddr,
			ConnectTimeout: cfg.ConnectTimeout,
			Backoff:        cfg.Backoff,
			OnUp:           c.promote,
		}, logging.NewLogger("remote-cache"))
	}

	return c
}

// Init starts the expiry sweeper and, when a remote is configured, the
// adapter's connect/reconnect loop. An unreachable remote does not fail
// Init; the cache simply stays in local-fallback mode until the
// adapter recovers. Init is idempotent.
func (c *Cache) Init() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.initialized = true
	c.mode = ModeLocalFallback

	// Sweeper and remote startup happen before the mutex is released:
	// a concurrent Close that observes initialized must find the
	// cancel func and WaitGroup already set up. The goroutines started
	// here take the lock themselves only later, so this cannot
	// deadlock.
	//
	// The sweeper runs even while remote is healthy so fallback data
	// is reclaimed regardless of connectivity.
	ctx, cancel := context.WithCancel(context.Background())
	c.sweepCancel = cancel
	c.sweepWG.Add(1)
	go c.sweepLoop(ctx)

	if c.remote != nil {
		c.remote.Start()
	}
	c.mu.Unlock()

	if c.remote != nil {
		c.logger.Info().Str("addr", c.cfg.RemoteAddr).Msg("Cache initialized, connecting to remote")
	} else {
		c.logger.Info().Msg("Cache initialized without remote, local-only mode")
	}

	return nil
}

// Get returns the value for key. While remote is active its answer is
// authoritative, even a miss; on remote failure this call and
// subsequent ones are served from the local store.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if err := c.operational(); err != nil {
		return "", false, err
	}

	if c.remoteActive() {
		v, ok, err := c.remote.Get(ctx, key)
		if err == nil {
			c.observe("remote", ok)
			return v, ok, nil
		}
		c.demote(err)
	}

	v, ok := c.local.Get(key)
	c.observe("local", ok)
	return v, ok, nil
}

// MGet returns one Result per key, positionally aligned with keys.
// The whole batch is served by a single backend: remote while active,
// otherwise the local store.
func (c *Cache) MGet(ctx context.Context, keys []string) ([]Result, error) {
	if err := c.operational(); err != nil {
		return nil, err
	}

	if c.remoteActive() {
		vals, err := c.remote.MGet(ctx, keys)
		if err == nil {
			results := make([]Result, len(keys))
			for i, v := range vals {
				if v != nil {
					results[i] = Result{Value: *v, Found: true}
				}
				c.observe("remote", v != nil)
			}
			return results, nil
		}
		c.demote(err)
	}

	results := make([]Result, len(keys))
	for i, key := range keys {
		v, ok := c.local.Get(key)
		results[i] = Result{Value: v, Found: ok}
		c.observe("local", ok)
	}
	return results, nil
}

// Set stores value under key. The write goes to the remote backend
// when active and always to the local store, so the local store stays
// a valid fallback snapshot. A non-positive ttl means no expiry.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.operational(); err != nil {
		return err
	}

	if c.remoteActive() {
		if err := c.remote.Set(ctx, key, value, ttl); err != nil {
			c.demote(err)
		}
	}

	c.local.Set(key, value, ttl)
	return nil
}

// Delete removes key from the remote backend (best-effort) and from
// the local store.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.operational(); err != nil {
		return err
	}

	if c.remoteActive() {
		if err := c.remote.Delete(ctx, key); err != nil {
			c.demote(err)
		}
	}

	c.local.Delete(key)
	return nil
}

// Mode returns the current backend mode.
func (c *Cache) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// RemoteActive reports whether the remote backend currently serves
// operations.
func (c *Cache) RemoteActive() bool {
	return c.remoteActive()
}

// Stats is a point-in-time snapshot of the cache state.
type Stats struct {
	Mode             Mode `json:"mode"`
	RemoteConfigured bool `json:"remote_configured"`
	RemoteActive     bool `json:"remote_active"`
	LocalEntries     int  `json:"local_entries"`
	LocalCapacity    int  `json:"local_capacity"`
}

// Stats returns a snapshot of the cache state.
func (c *Cache) Stats() Stats {
	return Stats{
		Mode:             c.Mode(),
		RemoteConfigured: c.remote != nil,
		RemoteActive:     c.remoteActive(),
		LocalEntries:     c.local.Len(),
		LocalCapacity:    c.local.Capacity(),
	}
}

// Close disconnects the remote backend, stops the sweeper, clears the
// local store and resets the mode. Close is idempotent.
func (c *Cache) Close() error {
	c.mu.Lock()
	if !c.initialized || c.closed {
		c.closed = true
		c.mode = ModeInert
		c.mu.Unlock()
		// Release the adapter even when Init never ran; Close on a
		// never-started adapter is a no-op beyond freeing the client.
		if c.remote != nil {
			return c.remote.Close()
		}
		return nil
	}
	c.closed = true
	c.mode = ModeInert
	c.mu.Unlock()

	c.sweepCancel()
	c.sweepWG.Wait()

	var err error
	if c.remote != nil {
		err = c.remote.Close()
	}
	c.local.Clear()

	c.logger.Info().Msg("Cache closed")
	return err
}

// sweepLoop periodically reclaims expired local entries. A ticker-based
// full scan keeps ownership simple: one goroutine, revoked on Close.
func (c *Cache) sweepLoop(ctx context.Context) {
	defer c.sweepWG.Done()

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.local.Sweep(); removed > 0 {
				c.logger.Debug().Int("removed", removed).Msg("Expiry sweep")
			}
			sweepsTotal.Inc()
		}
	}
}

func (c *Cache) operational() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (c *Cache) remoteActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode == ModeRemoteReady
}

// demote switches to local-fallback after a remote failure. The first
// failure of a degraded period logs a warning; repeats stay at debug
// to avoid flooding.
func (c *Cache) demote(err error) {
	c.mu.Lock()
	if c.mode != ModeRemoteReady {
		c.mu.Unlock()
		return
	}
	c.mode = ModeLocalFallback
	warned := c.warned
	c.warned = true
	c.mu.Unlock()

	fallbackTransitions.Inc()
	modeGauge.Set(0)

	if !warned {
		c.logger.Warn().Err(err).Msg("Remote cache degraded, serving from local store")
	} else {
		c.logger.Debug().Err(err).Msg("Remote cache still degraded")
	}
}

// promote is invoked by the adapter when a connect attempt succeeds.
func (c *Cache) promote() {
	c.mu.Lock()
	if c.closed || !c.initialized {
		c.mu.Unlock()
		return
	}
	c.mode = ModeRemoteReady
	c.warned = false
	c.mu.Unlock()

	modeGauge.Set(1)
	c.logger.Info().Msg("Remote cache active")
}

func (c *Cache) observe(backend string, hit bool) {
	if hit {
		cacheHits.WithLabelValues(backend).Inc()
	} else {
		cacheMisses.WithLabelValues(backend).Inc()
	}
}
