package cache

import (
	"container/list"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dircache/dircache/pkg/pathutil"
	"github.com/dircache/dircache/pkg/types"
)

// Config represents directory cache configuration
type Config struct {
	MaxEntries           int           `yaml:"max_entries"`
	MaxMemoryMB          int           `yaml:"max_memory_mb"`
	TTL                  time.Duration `yaml:"ttl"`
	CleanupInterval      time.Duration `yaml:"cleanup_interval"`
	MaxPatterns          int           `yaml:"max_patterns"`
	MaxConcurrentPreload int           `yaml:"max_concurrent_preload"`
	PrefetchInterval     time.Duration `yaml:"prefetch_interval"`

	EnablePreloading         bool `yaml:"enable_preloading"`
	EnableMemoryMonitoring   bool `yaml:"enable_memory_monitoring"`
	EnableBackgroundPrefetch bool `yaml:"enable_background_prefetch"`
	EnableNavigationPatterns bool `yaml:"enable_navigation_patterns"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxEntries:               100,
		MaxMemoryMB:              50,
		TTL:                      5 * time.Minute,
		CleanupInterval:          time.Minute,
		MaxPatterns:              500,
		MaxConcurrentPreload:     4,
		PrefetchInterval:         30 * time.Second,
		EnablePreloading:         true,
		EnableMemoryMonitoring:   true,
		EnableBackgroundPrefetch: false,
		EnableNavigationPatterns: true,
	}
}

// cacheItem represents one cached directory listing
type cacheItem struct {
	path         string
	contents     *types.DirectoryContents
	createdAt    time.Time
	expiresAt    time.Time
	lastAccessed time.Time
	sizeBytes    int64
	loadTime     time.Duration
	preloaded    bool
	element      *list.Element
}

// DirectoryCache is a bounded LRU+TTL cache over directory listings with
// navigation pattern learning and predictive preloading. All synchronous
// operations are atomic with respect to each other; Preload and WarmCache
// run their fetches concurrently and only take the lock to read or
// populate entries.
type DirectoryCache struct {
	mu          sync.Mutex
	config      *Config
	clock       types.Clock
	store       types.KeyValueStore
	logger      *slog.Logger
	fetch       types.FetchFunc
	items       map[string]*cacheItem
	evictList   *list.List
	currentSize int64
	maxBytes    int64

	// Pattern learner state. lastPath tracks the most recent successful
	// Get; transitions are only observed between consecutive hits.
	lastPath string
	patterns map[string]*types.NavigationPattern

	// Statistics counters
	hits          uint64
	misses        uint64
	preloadHits   uint64
	evictions     uint64
	expirations   uint64
	loadTimeSum   time.Duration
	loadTimeCount uint64

	stopCh chan struct{}
	closed bool
}

// Option customizes a DirectoryCache at construction time
type Option func(*DirectoryCache)

// WithClock substitutes the time source used for TTL and LRU bookkeeping.
func WithClock(clock types.Clock) Option {
	return func(c *DirectoryCache) { c.clock = clock }
}

// WithPatternStore sets the durable store for navigation patterns.
func WithPatternStore(store types.KeyValueStore) Option {
	return func(c *DirectoryCache) { c.store = store }
}

// WithLogger sets the logger used for warnings and debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *DirectoryCache) { c.logger = logger }
}

// WithFetcher registers the fetch function used by the background
// prefetch loop. Explicit Preload and WarmCache calls carry their own.
func WithFetcher(fetch types.FetchFunc) Option {
	return func(c *DirectoryCache) { c.fetch = fetch }
}

// New creates a directory cache. Previously persisted navigation patterns
// are loaded from the pattern store; load failures are logged and the
// cache starts with an empty table.
func New(config *Config, opts ...Option) *DirectoryCache {
	if config == nil {
		config = DefaultConfig()
	}

	c := &DirectoryCache{
		config:    config,
		clock:     types.SystemClock{},
		logger:    slog.Default(),
		items:     make(map[string]*cacheItem),
		evictList: list.New(),
		patterns:  make(map[string]*types.NavigationPattern),
		maxBytes:  int64(config.MaxMemoryMB) * 1024 * 1024,
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "dircache")

	if c.store != nil && config.EnableNavigationPatterns {
		c.loadPatterns()
	}

	if config.EnableMemoryMonitoring && config.CleanupInterval > 0 {
		go c.cleanupLoop()
	}
	if config.EnableBackgroundPrefetch && config.PrefetchInterval > 0 {
		go c.prefetchLoop()
	}

	return c
}

// Get returns the cached contents for path, or nil on a miss. An expired
// entry is removed and counts as a miss. A hit refreshes the entry's LRU
// position and feeds the pattern learner.
func (c *DirectoryCache) Get(path string) *types.DirectoryContents {
	path = pathutil.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[path]
	if !exists {
		c.misses++
		return nil
	}

	now := c.clock.Now()
	if now.After(item.expiresAt) {
		c.removeItem(item)
		c.expirations++
		c.misses++
		return nil
	}

	item.lastAccessed = now
	c.evictList.MoveToFront(item.element)

	c.hits++
	if item.preloaded {
		c.preloadHits++
	}

	if c.config.EnableNavigationPatterns && c.lastPath != "" && c.lastPath != path {
		c.recordTransition(c.lastPath, path, now)
	}
	c.lastPath = path

	return item.contents
}

// Set stores contents under path with a fresh TTL window. loadTime is the
// caller-measured fetch latency and feeds the running average; pass zero
// when unknown. An entry whose own estimated size exceeds the entire
// memory budget is rejected and never cached (any stale entry for the
// same path is dropped); the cache never evicts everything else to make
// room for a single oversized listing.
func (c *DirectoryCache) Set(path string, contents *types.DirectoryContents, loadTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(path, contents, loadTime, false)
}

func (c *DirectoryCache) set(path string, contents *types.DirectoryContents, loadTime time.Duration, preloaded bool) {
	path = pathutil.Normalize(path)
	size := c.estimateSize(contents)
	now := c.clock.Now()

	if loadTime > 0 {
		c.loadTimeSum += loadTime
		c.loadTimeCount++
	}

	if size > c.maxBytes {
		c.logger.Warn("entry exceeds memory budget, not cached",
			"path", path, "size_bytes", size, "budget_bytes", c.maxBytes)
		if existing, ok := c.items[path]; ok {
			c.removeItem(existing)
		}
		return
	}

	if item, exists := c.items[path]; exists {
		c.currentSize -= item.sizeBytes
		item.contents = contents
		item.createdAt = now
		item.expiresAt = now.Add(c.config.TTL)
		item.lastAccessed = now
		item.sizeBytes = size
		item.loadTime = loadTime
		item.preloaded = preloaded
		c.currentSize += size
		c.evictList.MoveToFront(item.element)
		c.evictIfNeeded()
		return
	}

	item := &cacheItem{
		path:         path,
		contents:     contents,
		createdAt:    now,
		expiresAt:    now.Add(c.config.TTL),
		lastAccessed: now,
		sizeBytes:    size,
		loadTime:     loadTime,
		preloaded:    preloaded,
	}
	item.element = c.evictList.PushFront(item)
	c.items[path] = item
	c.currentSize += size

	c.evictIfNeeded()
}

// Invalidate removes the entry for path if present. Unknown paths are a
// no-op.
func (c *DirectoryCache) Invalidate(path string) {
	path = pathutil.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[path]; exists {
		c.removeItem(item)
	}
}

// Clear removes all entries. Statistics counters and learned navigation
// patterns are kept.
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*cacheItem)
	c.evictList.Init()
	c.currentSize = 0
}

// Len returns the number of live entries.
func (c *DirectoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of cache statistics. HitRate is 0 when no
// requests have been served. CacheEfficiency is the documented composite
// 0.8*hitRate + 0.2*(preloadHits/hits).
func (c *DirectoryCache) Stats() types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := types.CacheStats{
		Hits:        c.hits,
		Misses:      c.misses,
		PreloadHits: c.preloadHits,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Entries:     len(c.items),
		MemoryUsage: c.currentSize,
	}

	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	if c.loadTimeCount > 0 {
		stats.AverageLoadTime = float64(c.loadTimeSum.Milliseconds()) / float64(c.loadTimeCount)
	}

	preloadRatio := 0.0
	if c.hits > 0 {
		preloadRatio = float64(c.preloadHits) / float64(c.hits)
	}
	stats.CacheEfficiency = 0.8*stats.HitRate + 0.2*preloadRatio

	return stats
}

// Close stops the background loops and flushes learned navigation
// patterns to the pattern store. The store itself keeps serving Get and
// Set after Close; a preload that lands afterwards is simply cached.
// Close is safe to call more than once.
func (c *DirectoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stopCh)

	if c.store == nil || !c.config.EnableNavigationPatterns {
		return nil
	}
	if err := c.persistPatterns(); err != nil {
		c.logger.Warn("failed to persist navigation patterns", "error", err)
		return err
	}
	return nil
}

// Helper methods. All assume c.mu is held.

func (c *DirectoryCache) removeItem(item *cacheItem) {
	c.evictList.Remove(item.element)
	delete(c.items, item.path)
	c.currentSize -= item.sizeBytes
}

func (c *DirectoryCache) evictIfNeeded() {
	for (len(c.items) > c.config.MaxEntries || c.currentSize > c.maxBytes) && c.evictList.Len() > 1 {
		element := c.evictList.Back()
		c.removeItem(element.Value.(*cacheItem))
		c.evictions++
	}
}

func (c *DirectoryCache) estimateSize(contents *types.DirectoryContents) int64 {
	data, err := json.Marshal(contents)
	if err != nil {
		// Unmarshalable payloads still occupy memory; charge a flat
		// estimate rather than under-accounting to zero.
		return 1024
	}
	return int64(len(data))
}

// isLive reports whether path has a non-expired entry.
func (c *DirectoryCache) isLive(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, exists := c.items[path]
	return exists && !c.clock.Now().After(item.expiresAt)
}

func (c *DirectoryCache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.clock.Now()
			for _, item := range c.items {
				if now.After(item.expiresAt) {
					c.removeItem(item)
					c.expirations++
				}
			}
			c.mu.Unlock()
		}
	}
}
