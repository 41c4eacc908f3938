// Package metrics provides the centralized Prometheus metrics registry for
// placeholder-export. All metrics are defined in their respective packages
// (client, cache, feed, pipeline, export) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the exporter.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - upstream_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - upstream_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - export_cache_hits_total (Counter): Response cache hits
//   - export_cache_misses_total (Counter): Response cache misses
//   - export_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pipeline Metrics (pkg/feed, pkg/pipeline, pkg/export):
//   - export_rejections_total{entity} (Counter): Records dropped by validation
//   - export_stage_duration_seconds{stage} (Histogram): Stage duration (users, posts, comments)
//   - export_fetch_failures_total{stage} (Counter): Entities excluded by permanent fetch failures
//   - export_rows_total (Counter): CSV data rows written
//
// Example Prometheus Queries:
//
//   # Retry Rate
//   rate(upstream_retries_total[5m])
//
//   # Cache Hit Rate
//   rate(export_cache_hits_total[5m]) /
//   (rate(export_cache_hits_total[5m]) + rate(export_cache_misses_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(upstream_request_duration_seconds_bucket[5m]))
