package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "OSPREY_SERVER_HOST"
	EnvServerPort              = "OSPREY_SERVER_PORT"
	EnvServerReadTimeout       = "OSPREY_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "OSPREY_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "OSPREY_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "OSPREY_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "OSPREY_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP server parameters. Timeouts are Go duration strings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration       { return duration(c.ReadTimeout) }
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration { return duration(c.ReadHeaderTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration      { return duration(c.WriteTimeout) }
func (c *ServerConfig) IdleTimeoutDuration() time.Duration       { return duration(c.IdleTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration   { return duration(c.ShutdownTimeout) }

// timeouts pairs each timeout field with its key, default and env var.
func (c *ServerConfig) timeouts() []struct {
	key, def, env string
	value         *string
} {
	return []struct {
		key, def, env string
		value         *string
	}{
		{"read_timeout", "30s", EnvServerReadTimeout, &c.ReadTimeout},
		{"read_header_timeout", "10s", EnvServerReadHeaderTimeout, &c.ReadHeaderTimeout},
		{"write_timeout", "1m", EnvServerWriteTimeout, &c.WriteTimeout},
		{"idle_timeout", "2m", EnvServerIdleTimeout, &c.IdleTimeout},
		{"shutdown_timeout", "30s", EnvServerShutdownTimeout, &c.ShutdownTimeout},
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if port, err := strconv.Atoi(os.Getenv(EnvServerPort)); err == nil {
		c.Port = port
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	for _, t := range c.timeouts() {
		if *t.value == "" {
			*t.value = t.def
		}
		if v := os.Getenv(t.env); v != "" {
			*t.value = v
		}
		if d, err := time.ParseDuration(*t.value); err != nil {
			return fmt.Errorf("invalid %s: %w", t.key, err)
		} else if d < 0 {
			return fmt.Errorf("%s cannot be negative", t.key)
		}
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}

	mine, theirs := c.timeouts(), overlay.timeouts()
	for i := range mine {
		if *theirs[i].value != "" {
			*mine[i].value = *theirs[i].value
		}
	}
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
