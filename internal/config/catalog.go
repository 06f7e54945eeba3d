package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvCatalogCacheSize = "OSPREY_CATALOG_CACHE_SIZE"
	EnvCatalogCacheTTL  = "OSPREY_CATALOG_CACHE_TTL"
)

// CatalogConfig holds folder lookup cache settings. A zero cache size
// after finalize disables caching.
type CatalogConfig struct {
	CacheSize *int   `toml:"cache_size"`
	CacheTTL  string `toml:"cache_ttl"`
}

// Size returns the configured cache size.
func (c *CatalogConfig) Size() int {
	if c.CacheSize == nil {
		return 0
	}
	return *c.CacheSize
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *CatalogConfig) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *CatalogConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *CatalogConfig) Merge(overlay *CatalogConfig) {
	if overlay.CacheSize != nil {
		c.CacheSize = overlay.CacheSize
	}
	if overlay.CacheTTL != "" {
		c.CacheTTL = overlay.CacheTTL
	}
}

func (c *CatalogConfig) loadDefaults() {
	if c.CacheSize == nil {
		size := 1024
		c.CacheSize = &size
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "1m"
	}
}

func (c *CatalogConfig) loadEnv() {
	if v := os.Getenv(EnvCatalogCacheSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheSize = &n
		}
	}
	if v := os.Getenv(EnvCatalogCacheTTL); v != "" {
		c.CacheTTL = v
	}
}

func (c *CatalogConfig) validate() error {
	if c.Size() < 0 {
		return fmt.Errorf("cache_size cannot be negative")
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache_ttl: %w", err)
	}
	return nil
}
