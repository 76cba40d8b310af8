// Package cache provides a hybrid key-value cache backed by a shared
// Redis service with a transparent in-process fallback.
//
// Operations route to the remote backend while it is healthy. Any
// remote failure demotes the cache to local-fallback mode for that
// call and all subsequent calls until the adapter's autonomous
// reconnect succeeds; callers never observe a backend error, only a
// potential miss. Writes are dual-written to both backends so the
// local store remains a valid fallback snapshot at all times.
//
// # Basic Usage
//
//	c := cache.New(cache.DefaultConfig("localhost:6379"))
//	if err := c.Init(); err != nil {
//		return err
//	}
//	defer c.Close()
//
//	_ = c.Set(ctx, "user:1", "alice", 5*time.Minute)
//
//	v, ok, _ := c.Get(ctx, "user:1")
//	if ok {
//		fmt.Println(v)
//	}
//
// # Batched Reads
//
//	keys := []string{"user:1", "user:2"}
//	results, _ := c.MGet(ctx, keys)
//	for i, r := range results {
//		if r.Found {
//			fmt.Println(keys[i], "=", r.Value)
//		}
//	}
//
// An empty remote address disables the remote backend entirely; the
// cache then runs in local-fallback mode from the start.
//
// # Guarantees and Non-Guarantees
//
// The local store never exceeds its configured capacity; overflow
// evicts the least recently used entry. Entries written with a
// positive TTL become absent once it elapses, removed lazily on access
// or by the periodic sweeper. The cache does not guarantee durability,
// strong consistency between the two backends, or cross-process
// eviction coordination while in fallback mode.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - hybridcache_hits_total{backend} / hybridcache_misses_total{backend}
//   - hybridcache_fallback_transitions_total
//   - hybridcache_mode (1 = remote active)
//   - hybridcache_sweeps_total
package cache
