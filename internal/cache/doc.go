/*
Package cache implements the directory navigation cache: a bounded LRU
store over directory listings with TTL expiry, navigation pattern
learning and predictive preloading.

# Architecture

One DirectoryCache instance combines four cooperating parts:

	┌─────────────────────────────────────────────┐
	│             Navigation / UI code            │
	│        (Get before fetch, Set after)        │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│              DirectoryCache                 │  ← This Package
	│  • Store: LRU + entry/memory bounds         │
	│  • TTL gate: lazy expiry on Get             │
	│  • Pattern learner: transition frequencies  │
	│  • Preloader: concurrent best-effort fetch  │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│        Caller-supplied FetchFunc            │
	│     (S3 listing, database, HTTP API)        │
	└─────────────────────────────────────────────┘

# Capacity and Expiry

Every Set runs eviction synchronously: after any completed Set the entry
count stays within MaxEntries and the estimated aggregate size within
MaxMemoryMB. The least recently used entry goes first. A single entry
larger than the whole memory budget is rejected rather than cached.

Entries expire TTL after their last Set. Expiry is checked lazily on Get;
with EnableMemoryMonitoring a background sweep also reclaims expired
entries between reads.

# Pattern Learning

Consecutive cache hits on different paths are observed as transitions and
counted per ordered (from, to) pair. The table is bounded by MaxPatterns
and persisted through a KeyValueStore across restarts. PreloadPaths ranks
likely next destinations from the parent, siblings and the learned
transitions; WarmCache fetches them ahead of navigation.

# Usage

	c := cache.New(cache.DefaultConfig(),
		cache.WithPatternStore(store),
	)
	defer c.Close()

	if contents := c.Get(path); contents != nil {
		return contents
	}
	contents, err := fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	c.Set(path, contents, time.Since(start))
	go c.WarmCache(ctx, path, fetch)

All failures inside preloading and pattern persistence degrade to cache
misses; callers never depend on the cache succeeding.
*/
package cache
