// Package client provides the resilient HTTP JSON client for the upstream
// API, with error classification, retry with exponential backoff, and an
// optional Redis response cache.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/placeholder-export/pkg/cache"
	"github.com/Sternrassler/placeholder-export/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Client is the upstream API client.
type Client struct {
	httpClient *http.Client
	cache      *cache.Cache
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the upstream API (required), e.g. "https://jsonplaceholder.typicode.com"
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Retry policy for transient failures
	Retry RetryConfig

	// Cache is an optional response cache; nil disables caching
	Cache *cache.Cache
}

// DefaultConfig returns a safe default configuration for the given base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "placeholder-export/0.1.0",
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new upstream API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		config: cfg,
		logger: logging.NewLogger("client"),
	}, nil
}

// GetJSON performs a GET request against an upstream endpoint and returns
// the raw JSON body. Transient failures (network errors, 5xx, 429) are
// retried with exponential backoff; 4xx responses are returned immediately
// as a permanent *APIError.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := strings.TrimRight(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())
	}()

	// Cache lookup first; a miss or cache error falls through to the request
	cacheKey := cache.Key(path, query)
	if c.cache != nil {
		body, err := c.cache.Get(ctx, cacheKey)
		if err == nil {
			c.logger.Debug().
				Str("endpoint", path).
				Str("cache_key", cacheKey).
				Msg("Cache hit")
			return body, nil
		}
		if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", path).Msg("Cache get error")
		}
	}

	var body []byte

	retryErr := retryWithBackoff(ctx, c.config.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		c.logger.Debug().
			Str("endpoint", path).
			Str("url", fullURL).
			Msg("Executing upstream request")

		resp, reqErr := c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Warn().Err(reqErr).Str("endpoint", path).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(path, "network_error").Inc()
			return reqErr
		}
		defer resp.Body.Close()

		requestsTotal.WithLabelValues(path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("endpoint", path).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Upstream request error")

			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return fmt.Errorf("read response body: %w", readErr)
		}

		body = data
		return nil
	}, Classify)

	if retryErr != nil {
		return nil, retryErr
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", path).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", path).
				Str("cache_key", cacheKey).
				Msg("Cached response")
		}
	}

	return body, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
