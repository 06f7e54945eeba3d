// Package config loads the service configuration from TOML files and
// environment variables.
//
// Resolution order: config.toml, then config.<OSPREY_ENV>.toml merged over it,
// then environment variables, then defaults for anything still unset.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/osprey/internal/previews"
	"github.com/JaimeStill/osprey/pkg/database"
	"github.com/JaimeStill/osprey/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvOspreyEnv             = "OSPREY_ENV"
	EnvOspreyConfigDir       = "OSPREY_CONFIG_DIR"
	EnvOspreyShutdownTimeout = "OSPREY_SHUTDOWN_TIMEOUT"
	EnvOspreyVersion         = "OSPREY_VERSION"
)

var databaseEnv = &database.Env{
	Host:             "OSPREY_DB_HOST",
	Port:             "OSPREY_DB_PORT",
	Name:             "OSPREY_DB_NAME",
	User:             "OSPREY_DB_USER",
	Password:         "OSPREY_DB_PASSWORD",
	SSLMode:          "OSPREY_DB_SSL_MODE",
	ApplicationName:  "OSPREY_DB_APPLICATION_NAME",
	StatementTimeout: "OSPREY_DB_STATEMENT_TIMEOUT",
	MaxOpenConns:     "OSPREY_DB_MAX_OPEN_CONNS",
	MaxIdleConns:     "OSPREY_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime:  "OSPREY_DB_CONN_MAX_LIFETIME",
	ConnTimeout:      "OSPREY_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "OSPREY_STORAGE_CONTAINER_NAME",
	ConnectionString: "OSPREY_STORAGE_CONNECTION_STRING",
}

var previewsEnv = &previews.Env{
	Prefix:       "OSPREY_PREVIEWS_PREFIX",
	Concurrency:  "OSPREY_PREVIEWS_CONCURRENCY",
	MaxEntrySize: "OSPREY_PREVIEWS_MAX_ENTRY_SIZE",
}

// Config is the root configuration for the Osprey service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Logging         LoggingConfig   `toml:"logging"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	QC              QCConfig        `toml:"qc"`
	Catalog         CatalogConfig   `toml:"catalog"`
	Previews        previews.Config `toml:"previews"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the OSPREY_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvOspreyEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load resolves configuration from OSPREY_CONFIG_DIR, or the working
// directory when unset. Missing files are not an error; defaults and
// environment variables then provide everything.
func Load() (*Config, error) {
	cfg, err := loadFiles()
	if err != nil {
		return nil, err
	}
	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// LoadDatabase resolves only the database section, from the same files and
// environment as Load.
func LoadDatabase() (*database.Config, error) {
	cfg, err := loadFiles()
	if err != nil {
		return nil, err
	}
	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return &cfg.Database, nil
}

func loadFiles() (*Config, error) {
	dir := os.Getenv(EnvOspreyConfigDir)
	if dir == "" {
		dir = "."
	}

	cfg, err := load(filepath.Join(dir, BaseConfigFile))
	if err != nil {
		return nil, err
	}

	if env := os.Getenv(EnvOspreyEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}
	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Logging.Merge(&overlay.Logging)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.QC.Merge(&overlay.QC)
	c.Catalog.Merge(&overlay.Catalog)
	c.Previews.Merge(&overlay.Previews)
}

func (c *Config) finalize() error {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if v := os.Getenv(EnvOspreyShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvOspreyVersion); v != "" {
		c.Version = v
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"logging", c.Logging.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"qc", c.QC.Finalize},
		{"catalog", c.Catalog.Finalize},
		{"previews", func() error { return c.Previews.Finalize(previewsEnv) }},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// load decodes the TOML file at path. A missing file yields an empty Config.
func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
