package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.API.BaseURL != "https://jsonplaceholder.typicode.com" {
		t.Errorf("BaseURL = %q, want jsonplaceholder default", cfg.API.BaseURL)
	}
	if cfg.Pipeline.MaxPostsPerUser != 5 {
		t.Errorf("MaxPostsPerUser = %d, want 5", cfg.Pipeline.MaxPostsPerUser)
	}
	if cfg.Pipeline.MaxCommentsPerPost != 3 {
		t.Errorf("MaxCommentsPerPost = %d, want 3", cfg.Pipeline.MaxCommentsPerPost)
	}
	if cfg.Pipeline.MaxConcurrency != 10 {
		t.Errorf("MaxConcurrency = %d, want 10", cfg.Pipeline.MaxConcurrency)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.Output.Path != "output.csv" {
		t.Errorf("Output.Path = %q, want output.csv", cfg.Output.Path)
	}
	if cfg.Cache.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty (cache disabled)", cfg.Cache.RedisAddr)
	}
}

func TestLoad_File(t *testing.T) {
	content := `
api:
  base_url: http://localhost:9000
  timeout: 10s
retry:
  max_attempts: 5
  initial_backoff: 250ms
pipeline:
  max_posts_per_user: 7
  max_comments_per_post: 2
  max_concurrency: 4
  stage_timeout: 1m
cache:
  redis_addr: localhost:6379
  ttl: 90s
output:
  path: /tmp/export.csv
logging:
  level: debug
  pretty: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %q, want http://localhost:9000", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.API.Timeout)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.InitialBackoff != 250*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 250ms", cfg.Retry.InitialBackoff)
	}
	if cfg.Pipeline.MaxPostsPerUser != 7 {
		t.Errorf("MaxPostsPerUser = %d, want 7", cfg.Pipeline.MaxPostsPerUser)
	}
	if cfg.Pipeline.StageTimeout != time.Minute {
		t.Errorf("StageTimeout = %v, want 1m", cfg.Pipeline.StageTimeout)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want localhost:6379", cfg.Cache.RedisAddr)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("Cache TTL = %v, want 90s", cfg.Cache.TTL)
	}
	if cfg.Output.Path != "/tmp/export.csv" {
		t.Errorf("Output.Path = %q, want /tmp/export.csv", cfg.Output.Path)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Pretty {
		t.Errorf("Logging = %+v, want debug/pretty", cfg.Logging)
	}
}

func TestLoad_FileExpandsEnv(t *testing.T) {
	t.Setenv("TEST_EXPORT_BASE", "http://expanded:8080")

	content := "api:\n  base_url: ${TEST_EXPORT_BASE}\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.API.BaseURL != "http://expanded:8080" {
		t.Errorf("BaseURL = %q, want expanded value", cfg.API.BaseURL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	content := "output:\n  path: from-file.csv\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Write config: %v", err)
	}

	t.Setenv("EXPORT_OUTPUT_PATH", "from-env.csv")
	t.Setenv("EXPORT_MAX_POSTS_PER_USER", "9")
	t.Setenv("EXPORT_STAGE_TIMEOUT", "45s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Output.Path != "from-env.csv" {
		t.Errorf("Output.Path = %q, want env override", cfg.Output.Path)
	}
	if cfg.Pipeline.MaxPostsPerUser != 9 {
		t.Errorf("MaxPostsPerUser = %d, want 9", cfg.Pipeline.MaxPostsPerUser)
	}
	if cfg.Pipeline.StageTimeout != 45*time.Second {
		t.Errorf("StageTimeout = %v, want 45s", cfg.Pipeline.StageTimeout)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	content := "api:\n  timeout: not-a-duration\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("EXPORT_MAX_CONCURRENCY", "lots")

	if _, err := Load(""); err == nil {
		t.Error("Expected error for non-integer EXPORT_MAX_CONCURRENCY")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("EXPORT_RETRY_MAX_ATTEMPTS", "0")

	if _, err := Load(""); err == nil {
		t.Error("Expected validation error for zero retry attempts")
	}
}
