package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/osprey/pkg/formatting"
	"github.com/JaimeStill/osprey/pkg/middleware"
	"github.com/JaimeStill/osprey/pkg/openapi"
	"github.com/JaimeStill/osprey/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "OSPREY_CORS_ENABLED",
	Origins:          "OSPREY_CORS_ORIGINS",
	AllowedMethods:   "OSPREY_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "OSPREY_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "OSPREY_CORS_EXPOSED_HEADERS",
	AllowCredentials: "OSPREY_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "OSPREY_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "OSPREY_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "OSPREY_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "OSPREY_OPENAPI_TITLE",
	Description: "OSPREY_OPENAPI_DESCRIPTION",
}

// APIConfig holds API routing, request limits, CORS, pagination, and
// OpenAPI settings.
type APIConfig struct {
	BasePath    string                `toml:"base_path"`
	MaxBodySize string                `toml:"max_body_size"`
	CORS        middleware.CORSConfig `toml:"cors"`
	Pagination  pagination.Config     `toml:"pagination"`
	OpenAPI     openapi.Config        `toml:"openapi"`
}

// MaxBodySizeBytes returns the request body limit in bytes.
// Finalize guarantees MaxBodySize parses.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxBodySize)
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if size, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("max_body_size: %w", err)
	} else if size < 1 {
		return fmt.Errorf("max_body_size must be positive")
	}

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "64KB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("OSPREY_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("OSPREY_API_MAX_BODY_SIZE"); v != "" {
		c.MaxBodySize = v
	}
}
