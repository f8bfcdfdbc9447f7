package prefetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// assetsTotal tracks prefetch outcomes per asset
	assetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcache_prefetch_assets_total",
			Help: "Total number of assets handled by the prefetcher",
		},
		[]string{"result"}, // "downloaded", "skipped", "failed", "checksum_mismatch"
	)

	// downloadDuration tracks asset fetch latency
	downloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adcache_prefetch_download_duration_seconds",
			Help:    "Asset download duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// downloadBytes tracks downloaded payload size
	downloadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcache_prefetch_bytes_total",
			Help: "Total number of asset bytes downloaded",
		},
	)
)
