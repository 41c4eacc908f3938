package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// fileConfig is the YAML shape. Durations are strings in Go duration
// syntax ("30s", "2m") and parsed during merge.
type fileConfig struct {
	API struct {
		BaseURL   string `yaml:"base_url"`
		UserAgent string `yaml:"user_agent"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"api"`
	Retry struct {
		MaxAttempts       int     `yaml:"max_attempts"`
		InitialBackoff    string  `yaml:"initial_backoff"`
		MaxBackoff        string  `yaml:"max_backoff"`
		BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	} `yaml:"retry"`
	Pipeline struct {
		MaxPostsPerUser    int    `yaml:"max_posts_per_user"`
		MaxCommentsPerPost int    `yaml:"max_comments_per_post"`
		MaxConcurrency     int    `yaml:"max_concurrency"`
		StageTimeout       string `yaml:"stage_timeout"`
	} `yaml:"pipeline"`
	Cache struct {
		RedisAddr string `yaml:"redis_addr"`
		TTL       string `yaml:"ttl"`
	} `yaml:"cache"`
	Output struct {
		Path string `yaml:"path"`
	} `yaml:"output"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty *bool  `yaml:"pretty"`
	} `yaml:"logging"`
}

// Load resolves the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		var fc fileConfig
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		if err := mergeFile(cfg, &fc); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// mergeFile overlays non-zero file values onto cfg.
func mergeFile(cfg *Config, fc *fileConfig) error {
	if fc.API.BaseURL != "" {
		cfg.API.BaseURL = fc.API.BaseURL
	}
	if fc.API.UserAgent != "" {
		cfg.API.UserAgent = fc.API.UserAgent
	}
	if err := mergeDuration(&cfg.API.Timeout, fc.API.Timeout, "api.timeout"); err != nil {
		return err
	}

	if fc.Retry.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = fc.Retry.MaxAttempts
	}
	if err := mergeDuration(&cfg.Retry.InitialBackoff, fc.Retry.InitialBackoff, "retry.initial_backoff"); err != nil {
		return err
	}
	if err := mergeDuration(&cfg.Retry.MaxBackoff, fc.Retry.MaxBackoff, "retry.max_backoff"); err != nil {
		return err
	}
	if fc.Retry.BackoffMultiplier > 0 {
		cfg.Retry.BackoffMultiplier = fc.Retry.BackoffMultiplier
	}

	if fc.Pipeline.MaxPostsPerUser > 0 {
		cfg.Pipeline.MaxPostsPerUser = fc.Pipeline.MaxPostsPerUser
	}
	if fc.Pipeline.MaxCommentsPerPost > 0 {
		cfg.Pipeline.MaxCommentsPerPost = fc.Pipeline.MaxCommentsPerPost
	}
	if fc.Pipeline.MaxConcurrency > 0 {
		cfg.Pipeline.MaxConcurrency = fc.Pipeline.MaxConcurrency
	}
	if err := mergeDuration(&cfg.Pipeline.StageTimeout, fc.Pipeline.StageTimeout, "pipeline.stage_timeout"); err != nil {
		return err
	}

	if fc.Cache.RedisAddr != "" {
		cfg.Cache.RedisAddr = fc.Cache.RedisAddr
	}
	if err := mergeDuration(&cfg.Cache.TTL, fc.Cache.TTL, "cache.ttl"); err != nil {
		return err
	}

	if fc.Output.Path != "" {
		cfg.Output.Path = fc.Output.Path
	}

	if fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}
	if fc.Logging.Pretty != nil {
		cfg.Logging.Pretty = *fc.Logging.Pretty
	}

	return nil
}

func mergeDuration(dst *time.Duration, value, key string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) error {
	cfg.API.BaseURL = getEnv("EXPORT_BASE_URL", cfg.API.BaseURL)
	cfg.API.UserAgent = getEnv("EXPORT_USER_AGENT", cfg.API.UserAgent)
	if err := getEnvDuration("EXPORT_API_TIMEOUT", &cfg.API.Timeout); err != nil {
		return err
	}

	if err := getEnvInt("EXPORT_RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts); err != nil {
		return err
	}
	if err := getEnvDuration("EXPORT_RETRY_INITIAL_BACKOFF", &cfg.Retry.InitialBackoff); err != nil {
		return err
	}
	if err := getEnvDuration("EXPORT_RETRY_MAX_BACKOFF", &cfg.Retry.MaxBackoff); err != nil {
		return err
	}

	if err := getEnvInt("EXPORT_MAX_POSTS_PER_USER", &cfg.Pipeline.MaxPostsPerUser); err != nil {
		return err
	}
	if err := getEnvInt("EXPORT_MAX_COMMENTS_PER_POST", &cfg.Pipeline.MaxCommentsPerPost); err != nil {
		return err
	}
	if err := getEnvInt("EXPORT_MAX_CONCURRENCY", &cfg.Pipeline.MaxConcurrency); err != nil {
		return err
	}
	if err := getEnvDuration("EXPORT_STAGE_TIMEOUT", &cfg.Pipeline.StageTimeout); err != nil {
		return err
	}

	cfg.Cache.RedisAddr = getEnv("EXPORT_REDIS_ADDR", cfg.Cache.RedisAddr)
	if err := getEnvDuration("EXPORT_CACHE_TTL", &cfg.Cache.TTL); err != nil {
		return err
	}

	cfg.Output.Path = getEnv("EXPORT_OUTPUT_PATH", cfg.Output.Path)

	cfg.Logging.Level = getEnv("EXPORT_LOG_LEVEL", cfg.Logging.Level)
	if value := os.Getenv("EXPORT_LOG_PRETTY"); value != "" {
		pretty, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for EXPORT_LOG_PRETTY=%q: %w", value, err)
		}
		cfg.Logging.Pretty = pretty
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, dst *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", key, value, err)
	}
	*dst = i
	return nil
}

func getEnvDuration(key string, dst *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", key, value, err)
	}
	*dst = d
	return nil
}
