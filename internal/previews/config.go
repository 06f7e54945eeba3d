package previews

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/osprey/pkg/formatting"
)

// Config holds preview staging settings.
type Config struct {
	Prefix       string `toml:"prefix"`
	Concurrency  int    `toml:"concurrency"`
	MaxEntrySize string `toml:"max_entry_size"`
}

// Env maps preview config fields to environment variable names.
type Env struct {
	Prefix       string
	Concurrency  string
	MaxEntrySize string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.MaxEntrySize != "" {
		c.MaxEntrySize = overlay.MaxEntrySize
	}
}

// MaxEntryBytes returns the largest archive entry staging will extract.
// Zero means no limit.
func (c *Config) MaxEntryBytes() int64 {
	if c.MaxEntrySize == "" {
		return 0
	}
	n, err := formatting.ParseBytes(c.MaxEntrySize)
	if err != nil {
		return 0
	}
	return n
}

func (c *Config) loadDefaults() {
	if c.Prefix == "" {
		c.Prefix = "image_previews"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxEntrySize == "" {
		c.MaxEntrySize = "25MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Prefix != "" {
		if v := os.Getenv(env.Prefix); v != "" {
			c.Prefix = v
		}
	}
	if env.Concurrency != "" {
		if v := os.Getenv(env.Concurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Concurrency = n
			}
		}
	}
	if env.MaxEntrySize != "" {
		if v := os.Getenv(env.MaxEntrySize); v != "" {
			c.MaxEntrySize = v
		}
	}
}

func (c *Config) validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive")
	}
	if _, err := formatting.ParseBytes(c.MaxEntrySize); err != nil {
		return fmt.Errorf("max_entry_size: %w", err)
	}
	return nil
}
