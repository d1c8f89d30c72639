package cache

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dircache/dircache/pkg/pathutil"
	"github.com/dircache/dircache/pkg/types"
)

// prefetchTimeout bounds one background warm run. Explicit Preload calls
// inherit the caller's context instead.
const prefetchTimeout = 30 * time.Second

// Preload populates the cache for each path not already cached live,
// using the supplied fetch function. Fetches run concurrently up to the
// configured limit; an individual failure is logged and leaves that path
// uncached without affecting the rest of the batch. Preload returns once
// every fetch has settled and never surfaces fetch errors.
func (c *DirectoryCache) Preload(ctx context.Context, paths []string, fetch types.FetchFunc) error {
	if !c.config.EnablePreloading || fetch == nil || len(paths) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(paths))
	g := new(errgroup.Group)
	limit := c.config.MaxConcurrentPreload
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, p := range paths {
		path := pathutil.Normalize(p)
		if seen[path] {
			continue
		}
		seen[path] = true

		g.Go(func() error {
			if c.isLive(path) {
				return nil
			}

			start := c.clock.Now()
			contents, err := fetch(ctx, path)
			if err != nil {
				c.logger.Warn("preload fetch failed", "path", path, "error", err)
				return nil
			}

			c.mu.Lock()
			c.set(path, contents, c.clock.Now().Sub(start), true)
			c.mu.Unlock()
			return nil
		})
	}

	return g.Wait()
}

// WarmCache preloads the predicted next destinations around path: its
// parent, its siblings and the highest-frequency learned transitions.
func (c *DirectoryCache) WarmCache(ctx context.Context, path string, fetch types.FetchFunc) error {
	if !c.config.EnablePreloading {
		return nil
	}

	candidates := c.PreloadPaths(path)
	if len(candidates) == 0 {
		return nil
	}

	c.logger.Debug("warming cache", "origin", path, "candidates", len(candidates))
	return c.Preload(ctx, candidates, fetch)
}

// SetFetcher registers the fetch function used by the background
// prefetch loop.
func (c *DirectoryCache) SetFetcher(fetch types.FetchFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetch = fetch
}

// prefetchLoop periodically warms the cache around the current location.
// It is advisory: runs without a registered fetcher or an observed
// location are skipped.
func (c *DirectoryCache) prefetchLoop() {
	ticker := time.NewTicker(c.config.PrefetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			origin := c.lastPath
			fetch := c.fetch
			c.mu.Unlock()

			if origin == "" || fetch == nil {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
			_ = c.WarmCache(ctx, origin, fetch)
			cancel()
		}
	}
}
