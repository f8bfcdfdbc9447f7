// Package metrics documents the Prometheus metrics exported by this module.
// All metrics are defined in their respective packages (cache, client,
// prefetch, response, tracking) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer exposes the registered metrics, e.g. for promhttp.HandlerFor.
var Gatherer = prometheus.DefaultGatherer

// Names lists every metric family exported by the module.
var Names = []string{
	"adcache_store_operations_total",
	"adcache_store_bytes_written_total",
	"adcache_folder_size_bytes",
	"adcache_janitor_removed_total",
	"adcache_janitor_failures_total",
	"adcache_availability_checks_total",
	"adcache_requests_total",
	"adcache_request_duration_seconds",
	"adcache_transport_errors_total",
	"adcache_responses_total",
	"adcache_prefetch_assets_total",
	"adcache_prefetch_download_duration_seconds",
	"adcache_prefetch_bytes_total",
	"adcache_tracking_events_total",
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - adcache_store_operations_total{operation, result} (Counter): Store calls by operation and ok/error
//   - adcache_store_bytes_written_total (Counter): Bytes persisted through Write
//   - adcache_folder_size_bytes{folder} (Gauge): Last observed size of each root child
//   - adcache_janitor_removed_total{kind} (Counter): Legacy files, dirs and sentinels removed
//   - adcache_janitor_failures_total (Counter): Janitor deletions that failed
//   - adcache_availability_checks_total{result} (Counter): Ad unit readiness checks (ready, missing)
//
// Request Metrics (pkg/client, pkg/response):
//   - adcache_requests_total{uri, outcome} (Counter): Backend requests by URI and HTTP status or failure kind
//   - adcache_request_duration_seconds{uri} (Histogram): Backend request duration
//   - adcache_transport_errors_total{class} (Counter): Transport failures (timeout, canceled, network)
//   - adcache_responses_total{outcome} (Counter): Parsed responses (success, not_found, not_ok, parse_failure, miscellaneous)
//
// Prefetch Metrics (pkg/prefetch):
//   - adcache_prefetch_assets_total{result} (Counter): downloaded, skipped, failed, checksum_mismatch
//   - adcache_prefetch_download_duration_seconds (Histogram): Asset fetch latency
//   - adcache_prefetch_bytes_total (Counter): Asset bytes downloaded
//
// Tracking Metrics (pkg/tracking):
//   - adcache_tracking_events_total{result} (Counter): delivered, dropped, failed
//
// Example Prometheus Queries:
//
//   # Prefetch failure ratio
//   sum(rate(adcache_prefetch_assets_total{result=~"failed|checksum_mismatch"}[5m])) /
//   sum(rate(adcache_prefetch_assets_total[5m]))
//
//   # No-fill rate
//   rate(adcache_responses_total{outcome="not_found"}[5m]) / rate(adcache_responses_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(adcache_request_duration_seconds_bucket[5m]))
//
//   # Cache size
//   sum(adcache_folder_size_bytes)
