// Package config loads and validates the application configuration from
// YAML files and DIRCACHE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/dircache/dircache/internal/cache"
	"github.com/dircache/dircache/internal/metrics"
	s3fetch "github.com/dircache/dircache/internal/storage/s3"
)

// Configuration represents the complete application configuration
type Configuration struct {
	Global  GlobalConfig   `yaml:"global"`
	Cache   cache.Config   `yaml:"cache"`
	Storage StorageConfig  `yaml:"storage"`
	Metrics metrics.Config `yaml:"metrics"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// StorageConfig represents pattern persistence and directory provider
// settings
type StorageConfig struct {
	PatternsDir string           `yaml:"patterns_dir"`
	S3          S3ProviderConfig `yaml:"s3"`
}

// S3ProviderConfig represents the optional S3 directory provider
type S3ProviderConfig struct {
	Enabled        bool `yaml:"enabled"`
	s3fetch.Config `yaml:",inline"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel: "INFO",
		},
		Cache: *cache.DefaultConfig(),
		Storage: StorageConfig{
			PatternsDir: "/var/lib/dircache",
		},
		Metrics: metrics.Config{
			Enabled:        true,
			Port:           8080,
			Path:           "/metrics",
			Namespace:      "dircache",
			UpdateInterval: 30 * time.Second,
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration overrides from environment variables
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("DIRCACHE_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("DIRCACHE_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}

	if val := os.Getenv("DIRCACHE_MAX_ENTRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.MaxEntries = n
		}
	}
	if val := os.Getenv("DIRCACHE_MAX_MEMORY_MB"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.MaxMemoryMB = n
		}
	}
	if val := os.Getenv("DIRCACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Cache.TTL = d
		}
	}
	if val := os.Getenv("DIRCACHE_PRELOADING"); val != "" {
		c.Cache.EnablePreloading = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("DIRCACHE_MEMORY_MONITORING"); val != "" {
		c.Cache.EnableMemoryMonitoring = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("DIRCACHE_BACKGROUND_PREFETCH"); val != "" {
		c.Cache.EnableBackgroundPrefetch = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("DIRCACHE_NAVIGATION_PATTERNS"); val != "" {
		c.Cache.EnableNavigationPatterns = strings.ToLower(val) == "true"
	}

	if val := os.Getenv("DIRCACHE_PATTERNS_DIR"); val != "" {
		c.Storage.PatternsDir = val
	}
	if val := os.Getenv("DIRCACHE_S3_BUCKET"); val != "" {
		c.Storage.S3.Enabled = true
		c.Storage.S3.Bucket = val
	}
	if val := os.Getenv("DIRCACHE_S3_REGION"); val != "" {
		c.Storage.S3.Region = val
	}
	if val := os.Getenv("DIRCACHE_S3_ENDPOINT"); val != "" {
		c.Storage.S3.Endpoint = val
	}

	if val := os.Getenv("DIRCACHE_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Metrics.Port = port
		}
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("max_entries must be greater than 0")
	}
	if c.Cache.MaxMemoryMB <= 0 {
		return fmt.Errorf("max_memory_mb must be greater than 0")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("ttl must be greater than 0")
	}
	if c.Cache.MaxConcurrentPreload <= 0 {
		return fmt.Errorf("max_concurrent_preload must be greater than 0")
	}
	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3 provider requires a bucket")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}
