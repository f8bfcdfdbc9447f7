package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations tracks store calls by operation and result
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcache_store_operations_total",
			Help: "Total number of asset cache store operations",
		},
		[]string{"operation", "result"}, // result: "ok", "error"
	)

	// StoreBytesWritten tracks bytes persisted through Write
	StoreBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcache_store_bytes_written_total",
			Help: "Total number of bytes written into the asset cache",
		},
	)

	// FolderBytes tracks the last observed size of each root child
	FolderBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adcache_folder_size_bytes",
			Help: "Recursive size of each directory under the cache root",
		},
		[]string{"folder"},
	)

	// JanitorRemoved tracks entries removed by the legacy sweep
	JanitorRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcache_janitor_removed_total",
			Help: "Total number of legacy cache entries removed by the janitor",
		},
		[]string{"kind"}, // "file", "dir", "sentinel"
	)

	// JanitorFailures tracks entries the janitor could not remove
	JanitorFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcache_janitor_failures_total",
			Help: "Total number of janitor deletions that failed",
		},
	)

	// AvailabilityChecks tracks ad unit readiness checks
	AvailabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcache_availability_checks_total",
			Help: "Total number of ad unit asset availability checks",
		},
		[]string{"result"}, // "ready", "missing"
	)
)

func observeOp(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(operation, result).Inc()
}
