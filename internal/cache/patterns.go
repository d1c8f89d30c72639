package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dircache/dircache/pkg/pathutil"
	"github.com/dircache/dircache/pkg/types"
)

// PatternStorageKey is the fixed key under which the serialized
// navigation pattern table lives in the pattern store. The value is a
// JSON array of {fromPath, toPath, frequency, lastSeenAt} records.
const PatternStorageKey = "directory-cache-navigation-patterns"

func patternKey(from, to string) string {
	return from + "\x1f" + to
}

// recordTransition increments the frequency of the ordered (from, to)
// transition, creating the record on first observation. Assumes c.mu is
// held.
func (c *DirectoryCache) recordTransition(from, to string, now time.Time) {
	key := patternKey(from, to)
	if pattern, exists := c.patterns[key]; exists {
		pattern.Frequency++
		pattern.LastSeenAt = now
		return
	}

	c.patterns[key] = &types.NavigationPattern{
		FromPath:   from,
		ToPath:     to,
		Frequency:  1,
		LastSeenAt: now,
	}

	if c.config.MaxPatterns > 0 && len(c.patterns) > c.config.MaxPatterns {
		c.evictPattern()
	}
}

// evictPattern drops the least-frequent pattern, breaking ties on the
// oldest observation. Assumes c.mu is held.
func (c *DirectoryCache) evictPattern() {
	var victimKey string
	var victim *types.NavigationPattern

	for key, pattern := range c.patterns {
		if victim == nil ||
			pattern.Frequency < victim.Frequency ||
			(pattern.Frequency == victim.Frequency && pattern.LastSeenAt.Before(victim.LastSeenAt)) {
			victimKey = key
			victim = pattern
		}
	}

	if victim != nil {
		delete(c.patterns, victimKey)
	}
}

// NavigationPatterns returns a snapshot of all learned patterns, most
// frequent first.
func (c *DirectoryCache) NavigationPatterns() []types.NavigationPattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotPatterns()
}

func (c *DirectoryCache) snapshotPatterns() []types.NavigationPattern {
	patterns := make([]types.NavigationPattern, 0, len(c.patterns))
	for _, pattern := range c.patterns {
		patterns = append(patterns, *pattern)
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		if !patterns[i].LastSeenAt.Equal(patterns[j].LastSeenAt) {
			return patterns[i].LastSeenAt.After(patterns[j].LastSeenAt)
		}
		return patterns[i].FromPath < patterns[j].FromPath
	})

	return patterns
}

// PreloadPaths returns the ranked, de-duplicated candidate paths to
// preload around path: its parent, siblings taken from the cached parent
// listing, then learned transition targets by descending frequency. The
// result excludes path itself and anything already cached live.
func (c *DirectoryCache) PreloadPaths(path string) []string {
	path = pathutil.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	live := func(p string) bool {
		item, exists := c.items[p]
		return exists && !now.After(item.expiresAt)
	}

	seen := map[string]bool{path: true}
	var candidates []string
	add := func(p string) {
		if seen[p] {
			return
		}
		seen[p] = true
		if !live(p) {
			candidates = append(candidates, p)
		}
	}

	parent, hasParent := pathutil.Parent(path)
	if hasParent {
		add(parent)
	}

	// Siblings are only known when the parent listing itself is cached.
	if hasParent {
		if item, exists := c.items[parent]; exists && !now.After(item.expiresAt) {
			for _, folder := range item.contents.Folders {
				add(pathutil.Normalize(folder.Path))
			}
		}
	}

	var outgoing []*types.NavigationPattern
	for _, pattern := range c.patterns {
		if pattern.FromPath == path {
			outgoing = append(outgoing, pattern)
		}
	}
	sort.Slice(outgoing, func(i, j int) bool {
		if outgoing[i].Frequency != outgoing[j].Frequency {
			return outgoing[i].Frequency > outgoing[j].Frequency
		}
		return outgoing[i].LastSeenAt.After(outgoing[j].LastSeenAt)
	})
	for _, pattern := range outgoing {
		add(pattern.ToPath)
	}

	return candidates
}

// loadPatterns restores the pattern table from the pattern store.
// Best-effort: read or decode failures leave the table empty.
func (c *DirectoryCache) loadPatterns() {
	raw, err := c.store.GetItem(PatternStorageKey)
	if err != nil {
		c.logger.Warn("failed to load navigation patterns", "error", err)
		return
	}
	if raw == "" {
		return
	}

	var stored []types.NavigationPattern
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.logger.Warn("failed to decode navigation patterns", "error", err)
		return
	}

	for i := range stored {
		pattern := stored[i]
		c.patterns[patternKey(pattern.FromPath, pattern.ToPath)] = &pattern
	}
	for c.config.MaxPatterns > 0 && len(c.patterns) > c.config.MaxPatterns {
		c.evictPattern()
	}
}

// persistPatterns writes the pattern table back to the pattern store.
// Assumes c.mu is held.
func (c *DirectoryCache) persistPatterns() error {
	data, err := json.Marshal(c.snapshotPatterns())
	if err != nil {
		return fmt.Errorf("failed to encode navigation patterns: %w", err)
	}
	if err := c.store.SetItem(PatternStorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to write navigation patterns: %w", err)
	}
	return nil
}
