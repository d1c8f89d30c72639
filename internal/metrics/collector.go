// Package metrics exposes directory cache statistics over a Prometheus
// /metrics endpoint.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dircache/dircache/pkg/types"
)

// StatsSource supplies the current cache statistics snapshot.
type StatsSource interface {
	Stats() types.CacheStats
}

// Config represents metrics exporter configuration
type Config struct {
	Enabled        bool          `yaml:"enabled"`
	Port           int           `yaml:"port"`
	Path           string        `yaml:"path"`
	Namespace      string        `yaml:"namespace"`
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// Collector periodically snapshots cache statistics into Prometheus
// gauges and serves them over HTTP.
type Collector struct {
	config   *Config
	source   StatsSource
	registry *prometheus.Registry
	logger   *slog.Logger
	server   *http.Server

	hits            prometheus.Gauge
	misses          prometheus.Gauge
	preloadHits     prometheus.Gauge
	evictions       prometheus.Gauge
	expirations     prometheus.Gauge
	entries         prometheus.Gauge
	memoryUsage     prometheus.Gauge
	hitRate         prometheus.Gauge
	averageLoadTime prometheus.Gauge
	cacheEfficiency prometheus.Gauge
}

// NewCollector creates a metrics collector reading from source.
func NewCollector(config *Config, source StatsSource, logger *slog.Logger) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:        true,
			Port:           8080,
			Path:           "/metrics",
			Namespace:      "dircache",
			UpdateInterval: 30 * time.Second,
		}
	}
	if config.Namespace == "" {
		config.Namespace = "dircache"
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if config.UpdateInterval <= 0 {
		config.UpdateInterval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Collector{
		config:   config,
		source:   source,
		registry: prometheus.NewRegistry(),
		logger:   logger.With("component", "metrics"),
	}

	if !config.Enabled {
		return c, nil
	}
	if source == nil {
		return nil, fmt.Errorf("metrics collector requires a stats source")
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return c, nil
}

func (c *Collector) initMetrics() error {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Name:      name,
			Help:      help,
		})
	}

	c.hits = gauge("hits_total", "Total cache hits")
	c.misses = gauge("misses_total", "Total cache misses")
	c.preloadHits = gauge("preload_hits_total", "Hits on entries populated by preloading")
	c.evictions = gauge("evictions_total", "Entries evicted for capacity")
	c.expirations = gauge("expirations_total", "Entries dropped after TTL expiry")
	c.entries = gauge("entries", "Live cache entries")
	c.memoryUsage = gauge("memory_usage_bytes", "Estimated memory used by live entries")
	c.hitRate = gauge("hit_rate", "hits / (hits + misses)")
	c.averageLoadTime = gauge("average_load_time_ms", "Running mean fetch latency")
	c.cacheEfficiency = gauge("cache_efficiency", "Composite of hit rate and preload contribution")

	for _, m := range []prometheus.Collector{
		c.hits, c.misses, c.preloadHits, c.evictions, c.expirations,
		c.entries, c.memoryUsage, c.hitRate, c.averageLoadTime, c.cacheEfficiency,
	} {
		if err := c.registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Start begins serving the metrics endpoint and updating gauges until ctx
// is canceled or Stop is called.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Warn("metrics server error", "error", err)
		}
	}()

	go c.updateLoop(ctx)

	return nil
}

// Stop shuts down the metrics server.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

// Update copies the current stats snapshot into the gauges.
func (c *Collector) Update() {
	stats := c.source.Stats()
	c.hits.Set(float64(stats.Hits))
	c.misses.Set(float64(stats.Misses))
	c.preloadHits.Set(float64(stats.PreloadHits))
	c.evictions.Set(float64(stats.Evictions))
	c.expirations.Set(float64(stats.Expirations))
	c.entries.Set(float64(stats.Entries))
	c.memoryUsage.Set(float64(stats.MemoryUsage))
	c.hitRate.Set(stats.HitRate)
	c.averageLoadTime.Set(stats.AverageLoadTime)
	c.cacheEfficiency.Set(stats.CacheEfficiency)
}

// Registry exposes the underlying registry, for embedding the metrics
// into an existing HTTP server.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) updateLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Update()
		}
	}
}
