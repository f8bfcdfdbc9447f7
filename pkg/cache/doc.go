// Package cache provides the directory-backed asset cache of the ad client.
//
// The cache root (<base>/.chartboost) owns one directory per Namespace:
//
//	css/ html/ images/ js/ templates/ videos/ precache/ precache_queue/
//	session/ track/ requests/
//
// All directories are created by NewStore. A file counts as cached when it
// exists and is not empty.
//
// # Basic Usage
//
//	store, err := cache.NewStore(baseDir, logger)
//	if err != nil {
//		return err
//	}
//
//	// Remove obsolete legacy template files once at startup
//	cache.NewJanitor(store, snapshot.TemplateTTLDays, logger)
//
//	// Persist a downloaded asset
//	if err := store.Write(cache.NamespaceImage, "banner.png", data); err != nil {
//		// logged already; the asset will simply be fetched again
//	}
//
//	// Gate an ad unit on its assets
//	checker := cache.NewAvailabilityChecker(store, logger)
//	if checker.AllCached(unit.CacheRefs()) {
//		// ready to show
//	}
//
// # Failure Model
//
// Store operations never panic. Failures are logged and returned as
// *OpError values matching ErrIO; callers treat them as a cache miss.
//
// # Metrics
//
//   - adcache_store_operations_total{operation,result}
//   - adcache_store_bytes_written_total
//   - adcache_folder_size_bytes{folder}
//   - adcache_janitor_removed_total{kind}
//   - adcache_janitor_failures_total
//   - adcache_availability_checks_total{result}
package cache
