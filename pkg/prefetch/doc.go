// Package prefetch downloads the assets of an ad unit into the asset cache
// with a bounded worker pool.
//
// Example usage:
//
//	d := prefetch.NewDownloader(prefetch.HTTPFetcher{}, store, sink,
//		prefetch.ConfigFromSnapshot(cfg), logger)
//	report, err := d.DownloadUnit(ctx, unit)
//
// The downloader:
//   - Skips assets that are already cached (non-empty file on disk)
//   - Runs at most MaxConcurrency downloads at a time
//   - Verifies the optional SHA-1 checksum before writing
//   - Reports download and checksum failures to the tracking sink
//   - Keeps going when one asset fails and joins the failures
package prefetch
