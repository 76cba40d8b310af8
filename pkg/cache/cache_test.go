package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/hybrid-kv-cache/internal/testutil"
	"github.com/Sternrassler/hybrid-kv-cache/pkg/cache"
)

// newLocalOnly returns an initialized cache without a remote backend.
func newLocalOnly(t *testing.T, capacity int) *cache.Cache {
	t.Helper()

	cfg := cache.DefaultConfig("")
	cfg.LocalCapacity = capacity
	cfg.SweepInterval = 20 * time.Millisecond

	c := cache.New(cfg)
	require.NoError(t, c.Init())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// newWithRemote returns an initialized cache connected to addr and
// waits until the remote backend is active.
func newWithRemote(t *testing.T, addr string) *cache.Cache {
	t.Helper()

	cfg := cache.DefaultConfig(addr)
	cfg.SweepInterval = 20 * time.Millisecond
	cfg.ConnectTimeout = time.Second
	cfg.Backoff = testutil.FastBackoff()

	c := cache.New(cfg)
	require.NoError(t, c.Init())
	t.Cleanup(func() { _ = c.Close() })

	require.Eventually(t, c.RemoteActive, 2*time.Second, 10*time.Millisecond,
		"remote backend never became active")
	return c
}

func TestCache_OperationsBeforeInit(t *testing.T) {
	c := cache.New(cache.DefaultConfig(""))
	ctx := context.Background()

	_, _, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotInitialized)

	err = c.Set(ctx, "k", "v", 0)
	assert.ErrorIs(t, err, cache.ErrNotInitialized)

	err = c.Delete(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotInitialized)

	_, err = c.MGet(ctx, []string{"k"})
	assert.ErrorIs(t, err, cache.ErrNotInitialized)

	assert.Equal(t, cache.ModeInert, c.Mode())
}

func TestCache_Init_Idempotent(t *testing.T) {
	c := cache.New(cache.DefaultConfig(""))
	require.NoError(t, c.Init())
	require.NoError(t, c.Init())
	require.NoError(t, c.Close())
}

func TestCache_LocalOnly_SetGetDelete(t *testing.T) {
	c := newLocalOnly(t, 16)
	ctx := context.Background()

	assert.Equal(t, cache.ModeLocalFallback, c.Mode())
	assert.False(t, c.RemoteActive())

	require.NoError(t, c.Set(ctx, "k1", "v1", 0))

	v, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	require.NoError(t, c.Delete(ctx, "k1"))
	_, ok, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_LocalOnly_EmptyStringValue(t *testing.T) {
	c := newLocalOnly(t, 16)
	ctx := context.Background()

	// "" is a valid value, distinct from absent.
	require.NoError(t, c.Set(ctx, "empty", "", 0))

	v, ok, err := c.Get(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestCache_RemoteHealthy_ServesFromRemote(t *testing.T) {
	mr := testutil.StartRedis(t)
	c := newWithRemote(t, mr.Addr())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", 0))

	// The dual-write must have reached the remote service.
	got, err := mr.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	v, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
	assert.Equal(t, cache.ModeRemoteReady, c.Mode())
}

func TestCache_RemoteMissIsAuthoritative(t *testing.T) {
	mr := testutil.StartRedis(t)

	cfg := cache.DefaultConfig(mr.Addr())
	cfg.ConnectTimeout = time.Second
	cfg.Backoff = testutil.FastBackoff()
	c := cache.New(cfg)
	require.NoError(t, c.Init())
	t.Cleanup(func() { _ = c.Close() })
	require.Eventually(t, c.RemoteActive, 2*time.Second, 10*time.Millisecond)

	// Degrade the cache and write a key that only the local store sees.
	mr.Close()
	require.NoError(t, c.Set(context.Background(), "stale", "local-only", 0))
	require.False(t, c.RemoteActive())

	// Once remote recovers, its miss wins over the local copy.
	require.NoError(t, mr.Restart())
	require.Eventually(t, c.RemoteActive, 2*time.Second, 10*time.Millisecond)

	_, ok, err := c.Get(context.Background(), "stale")
	require.NoError(t, err)
	assert.False(t, ok, "remote miss must not fall through to the local store")
}

func TestCache_DualWriteDurability(t *testing.T) {
	mr := testutil.StartRedis(t)
	c := newWithRemote(t, mr.Addr())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", 0))

	// Force the remote into a failing state with no intervening Set.
	mr.Close()

	v, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok, "value written while remote was healthy must survive the outage")
	assert.Equal(t, "v1", v)
	assert.Equal(t, cache.ModeLocalFallback, c.Mode())
}

func TestCache_FallbackTransparency(t *testing.T) {
	// Same operation sequence against a healthy remote and against a
	// dead one; the observable contract must be identical.
	run := func(t *testing.T, c *cache.Cache) {
		ctx := context.Background()

		require.NoError(t, c.Set(ctx, "k1", "v1", 0))
		require.NoError(t, c.Set(ctx, "k2", "v2", time.Minute))

		v, ok, err := c.Get(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v1", v)

		results, err := c.MGet(ctx, []string{"k1", "missing", "k2"})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, cache.Result{Value: "v1", Found: true}, results[0])
		assert.Equal(t, cache.Result{}, results[1])
		assert.Equal(t, cache.Result{Value: "v2", Found: true}, results[2])

		require.NoError(t, c.Delete(ctx, "k1"))
		_, ok, err = c.Get(ctx, "k1")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	t.Run("remote healthy", func(t *testing.T) {
		mr := testutil.StartRedis(t)
		run(t, newWithRemote(t, mr.Addr()))
	})

	t.Run("remote failing", func(t *testing.T) {
		mr := testutil.StartRedis(t)
		c := newWithRemote(t, mr.Addr())
		mr.Close()
		run(t, c)
	})

	t.Run("remote never configured", func(t *testing.T) {
		run(t, newLocalOnly(t, 64))
	})
}

func TestCache_MGet_WholeBatchOneBackend(t *testing.T) {
	mr := testutil.StartRedis(t)
	c := newWithRemote(t, mr.Addr())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "kA", "vA", 0))
	mr.Close()

	// The remote failure during this call must fall the whole batch
	// back to the local store, keeping order and length.
	results, err := c.MGet(ctx, []string{"kA", "kB"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, cache.Result{Value: "vA", Found: true}, results[0])
	assert.False(t, results[1].Found)
}

func TestCache_MGet_Empty(t *testing.T) {
	c := newLocalOnly(t, 16)

	results, err := c.MGet(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCache_TTLExpiry_EndToEnd(t *testing.T) {
	c := newLocalOnly(t, 16)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u:1:ttl", "v1", 100*time.Millisecond))

	v, ok, err := c.Get(ctx, "u:1:ttl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	results, err := c.MGet(ctx, []string{"u:1:ttl", "u:missing"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, cache.Result{Value: "v1", Found: true}, results[0])
	assert.False(t, results[1].Found)

	time.Sleep(200 * time.Millisecond)

	_, ok, err = c.Get(ctx, "u:1:ttl")
	require.NoError(t, err)
	assert.False(t, ok, "key should be absent after TTL elapsed")

	results, err = c.MGet(ctx, []string{"u:1:ttl"})
	require.NoError(t, err)
	assert.False(t, results[0].Found)
}

func TestCache_RemoteTTLExpiry(t *testing.T) {
	mr := testutil.StartRedis(t)
	c := newWithRemote(t, mr.Addr())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", 2*time.Second))

	_, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(3 * time.Second)

	_, ok, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_SweeperReclaimsWithoutAccess(t *testing.T) {
	c := newLocalOnly(t, 16)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", 30*time.Millisecond))
	require.NoError(t, c.Set(ctx, "k2", "v2", 0))

	// No reads: only the sweeper can reclaim k1.
	require.Eventually(t, func() bool {
		return c.Stats().LocalEntries == 1
	}, time.Second, 10*time.Millisecond, "sweeper did not reclaim expired entry")
}

func TestCache_ModeTransitions(t *testing.T) {
	mr := testutil.StartRedis(t)
	c := newWithRemote(t, mr.Addr())
	ctx := context.Background()

	assert.Equal(t, cache.ModeRemoteReady, c.Mode())

	mr.Close()
	_, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, cache.ModeLocalFallback, c.Mode())

	require.NoError(t, mr.Restart())
	require.Eventually(t, c.RemoteActive, 2*time.Second, 10*time.Millisecond,
		"mode never returned to remote-ready")
	assert.Equal(t, cache.ModeRemoteReady, c.Mode())
}

func TestCache_InitWithUnreachableRemote(t *testing.T) {
	cfg := cache.DefaultConfig("127.0.0.1:1")
	cfg.ConnectTimeout = 100 * time.Millisecond
	cfg.Backoff = testutil.FastBackoff()

	c := cache.New(cfg)
	require.NoError(t, c.Init(), "unreachable remote must not fail Init")
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k1", "v1", 0))

	v, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
	assert.Equal(t, cache.ModeLocalFallback, c.Mode())
}

func TestCache_CapacityInvariantThroughFacade(t *testing.T) {
	const capacity = 8
	c := newLocalOnly(t, capacity)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), "v", 0))
		if n := c.Stats().LocalEntries; n > capacity {
			t.Fatalf("local entries %d exceed capacity %d", n, capacity)
		}
	}
}

func TestCache_Close(t *testing.T) {
	mr := testutil.StartRedis(t)
	c := newWithRemote(t, mr.Addr())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, cache.ModeInert, c.Mode())

	_, _, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, cache.ErrClosed)
}

func TestCache_InitCloseRace(t *testing.T) {
	// Init and Close racing on a fresh instance must never panic or
	// leak background work, whichever wins.
	for i := 0; i < 100; i++ {
		c := cache.New(cache.DefaultConfig(""))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Init()
		}()
		go func() {
			defer wg.Done()
			_ = c.Close()
		}()
		wg.Wait()

		// A second Close reaps the sweeper when Init won the race.
		require.NoError(t, c.Close())
		assert.Equal(t, cache.ModeInert, c.Mode())

		_, _, err := c.Get(context.Background(), "k")
		assert.ErrorIs(t, err, cache.ErrClosed)
	}
}

func TestCache_InitCloseRace_WithRemote(t *testing.T) {
	mr := testutil.StartRedis(t)

	for i := 0; i < 20; i++ {
		cfg := cache.DefaultConfig(mr.Addr())
		cfg.ConnectTimeout = time.Second
		cfg.Backoff = testutil.FastBackoff()
		c := cache.New(cfg)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Init()
		}()
		go func() {
			defer wg.Done()
			_ = c.Close()
		}()
		wg.Wait()

		require.NoError(t, c.Close())
		assert.False(t, c.RemoteActive(),
			"reconnect loop survived Close")
	}
}

func TestCache_ConcurrentOperations(t *testing.T) {
	mr := testutil.StartRedis(t)
	c := newWithRemote(t, mr.Addr())
	ctx := context.Background()

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-k%d", g, i%10)
				_ = c.Set(ctx, key, "v", 0)
				_, _, _ = c.Get(ctx, key)
				if i%13 == 0 {
					_ = c.Delete(ctx, key)
				}
				if i%31 == 0 {
					_, _ = c.MGet(ctx, []string{key, "missing"})
				}
			}
		}(g)
	}
	// Kill the server mid-flight to exercise concurrent demotion.
	time.Sleep(10 * time.Millisecond)
	mr.Close()

	for g := 0; g < 8; g++ {
		<-done
	}

	stats := c.Stats()
	assert.LessOrEqual(t, stats.LocalEntries, stats.LocalCapacity)
}
