// Package config provides application configuration from an optional YAML
// file overlaid with environment variables. Defaults are applied first, the
// file second, the environment last.
package config

import (
	"fmt"
	"time"

	"github.com/Sternrassler/placeholder-export/pkg/client"
	"github.com/Sternrassler/placeholder-export/pkg/pipeline"
)

// Config is the resolved application configuration.
type Config struct {
	API      APIConfig
	Retry    client.RetryConfig
	Pipeline pipeline.Config
	Cache    CacheConfig
	Output   OutputConfig
	Logging  LoggingConfig
}

// APIConfig holds upstream API settings.
type APIConfig struct {
	// BaseURL of the upstream API
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration
}

// CacheConfig holds the optional Redis response cache settings.
type CacheConfig struct {
	// RedisAddr enables the response cache when non-empty (host:port)
	RedisAddr string

	// TTL for cached response bodies
	TTL time.Duration
}

// OutputConfig holds export settings.
type OutputConfig struct {
	// Path of the CSV output file
	Path string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string

	// Pretty enables human-readable console output instead of JSON
	Pretty bool
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://jsonplaceholder.typicode.com",
			UserAgent: "placeholder-export/0.1.0",
			Timeout:   30 * time.Second,
		},
		Retry:    client.DefaultRetryConfig(),
		Pipeline: pipeline.DefaultConfig(),
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Output: OutputConfig{
			Path: "output.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base URL is required")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1 (got %d)", c.Retry.MaxAttempts)
	}
	if c.Pipeline.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be >= 1 (got %d)", c.Pipeline.MaxConcurrency)
	}
	if c.Pipeline.MaxPostsPerUser < 1 {
		return fmt.Errorf("max posts per user must be >= 1 (got %d)", c.Pipeline.MaxPostsPerUser)
	}
	if c.Pipeline.MaxCommentsPerPost < 1 {
		return fmt.Errorf("max comments per post must be >= 1 (got %d)", c.Pipeline.MaxCommentsPerPost)
	}
	return nil
}
