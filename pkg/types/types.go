package types

import (
	"context"
	"time"
)

// File represents one file inside a directory listing
type File struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Folder represents one subdirectory inside a directory listing
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Breadcrumb represents one ancestor segment of a directory path
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DirectoryContents is the payload cached per directory path. The cache
// treats it as opaque except for Folders, which drives sibling preloading.
type DirectoryContents struct {
	Files       []File       `json:"files"`
	Folders     []Folder     `json:"folders"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs"`
	Timestamp   time.Time    `json:"timestamp"`
}

// NavigationPattern records the observed frequency of one directory
// transition. The serialized form is the persistence format.
type NavigationPattern struct {
	FromPath   string    `json:"fromPath"`
	ToPath     string    `json:"toPath"`
	Frequency  int64     `json:"frequency"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// CacheStats represents directory cache performance statistics
type CacheStats struct {
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	PreloadHits     uint64  `json:"preload_hits"`
	Evictions       uint64  `json:"evictions"`
	Expirations     uint64  `json:"expirations"`
	Entries         int     `json:"entries"`
	MemoryUsage     int64   `json:"memory_usage"`
	HitRate         float64 `json:"hit_rate"`
	AverageLoadTime float64 `json:"average_load_time_ms"`
	CacheEfficiency float64 `json:"cache_efficiency"`
}

// FetchFunc loads the contents of one directory path. Supplied by the
// caller; the cache never retries it and imposes no timeout of its own.
type FetchFunc func(ctx context.Context, path string) (*DirectoryContents, error)

// KeyValueStore is the durable storage port used for navigation pattern
// persistence. Implementations return ("", nil) for missing keys.
type KeyValueStore interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
}

// Clock abstracts time for TTL and LRU bookkeeping so tests can
// substitute a deterministic source.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
