package prefetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/ad-asset-client/pkg/adunit"
	"github.com/Sternrassler/ad-asset-client/pkg/cache"
	"github.com/Sternrassler/ad-asset-client/pkg/config"
	"github.com/Sternrassler/ad-asset-client/pkg/tracking"
)

// ErrChecksumMismatch is returned when downloaded content does not match
// the asset checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Config holds downloader configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel downloads.
	MaxConcurrency int
	// Timeout per asset download.
	Timeout time.Duration
}

// DefaultConfig returns the downloader defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// ConfigFromSnapshot derives the downloader configuration from cfg.
func ConfigFromSnapshot(cfg config.Snapshot) Config {
	return Config{
		MaxConcurrency: cfg.PrefetchConcurrency,
		Timeout:        cfg.DownloadTimeout,
	}
}

// Fetcher retrieves the content of one asset URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Result is the outcome for one asset.
type Result struct {
	Asset   string
	Skipped bool
	Bytes   int
	Err     error
}

// Report summarizes one Download call. Results are in asset name order.
type Report struct {
	Downloaded int
	Skipped    int
	Failed     int
	Results    []Result
}

// Downloader fills the asset cache.
type Downloader struct {
	fetcher Fetcher
	store   *cache.Store
	sink    tracking.Sink
	config  Config
	logger  zerolog.Logger
}

// NewDownloader creates a Downloader. A nil sink discards events.
func NewDownloader(fetcher Fetcher, store *cache.Store, sink tracking.Sink, config Config, logger zerolog.Logger) *Downloader {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if sink == nil {
		sink = tracking.NopSink{}
	}
	return &Downloader{
		fetcher: fetcher,
		store:   store,
		sink:    sink,
		config:  config,
		logger:  logger.With().Str("component", "prefetch").Logger(),
	}
}

// DownloadUnit downloads every asset of unit.
func (d *Downloader) DownloadUnit(ctx context.Context, unit adunit.AdUnit) (Report, error) {
	return d.Download(ctx, unit.SortedAssets())
}

// Download fetches the assets that are not cached yet and writes them into
// the store. A failing asset does not stop the others; the returned error
// joins every failure.
func (d *Downloader) Download(ctx context.Context, assets []adunit.Asset) (Report, error) {
	start := time.Now()
	results := make([]Result, len(assets))

	var g errgroup.Group
	g.SetLimit(d.config.MaxConcurrency)

	for i, asset := range assets {
		results[i].Asset = asset.Name

		if d.store.Exists(asset.Namespace, asset.Filename) {
			results[i].Skipped = true
			assetsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		i, asset := i, asset
		g.Go(func() error {
			n, err := d.fetchOne(ctx, asset)
			results[i].Bytes = n
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: results}
	var errs []error
	for _, r := range results {
		switch {
		case r.Skipped:
			report.Skipped++
		case r.Err != nil:
			report.Failed++
			errs = append(errs, fmt.Errorf("asset %s: %w", r.Asset, r.Err))
		default:
			report.Downloaded++
		}
	}

	d.logger.Info().
		Int("assets", len(assets)).
		Int("downloaded", report.Downloaded).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", time.Since(start)).
		Msg("Prefetch complete")

	return report, errors.Join(errs...)
}

func (d *Downloader) fetchOne(ctx context.Context, asset adunit.Asset) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	start := time.Now()
	data, err := d.fetcher.Fetch(fetchCtx, asset.URL)
	downloadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		assetsTotal.WithLabelValues("failed").Inc()
		d.logger.Warn().Err(err).Str("asset", asset.Name).Str("url", asset.URL).Msg("Asset download failed")
		d.sink.Track(tracking.NewEvent(tracking.EventAssetDownload, err.Error(), asset.Name))
		return 0, err
	}

	if asset.Checksum != "" {
		sum := sha1.Sum(data)
		got := hex.EncodeToString(sum[:])
		if !strings.EqualFold(got, asset.Checksum) {
			assetsTotal.WithLabelValues("checksum_mismatch").Inc()
			msg := fmt.Sprintf("asset %s: got %s, want %s", asset.Name, got, asset.Checksum)
			d.logger.Warn().Str("asset", asset.Name).Str("got", got).Str("want", asset.Checksum).Msg("Asset checksum mismatch")
			d.sink.Track(tracking.NewEvent(tracking.EventAssetChecksum, msg, asset.Name))
			return 0, fmt.Errorf("%w: got %s", ErrChecksumMismatch, got)
		}
	}

	if err := d.store.Write(asset.Namespace, asset.Filename, data); err != nil {
		assetsTotal.WithLabelValues("failed").Inc()
		return 0, err
	}

	assetsTotal.WithLabelValues("downloaded").Inc()
	downloadBytes.Add(float64(len(data)))
	d.logger.Debug().Str("asset", asset.Name).Int("bytes", len(data)).Msg("Asset cached")
	return len(data), nil
}

// HTTPFetcher fetches assets over HTTP GET.
type HTTPFetcher struct {
	Client *http.Client
	// MaxBytes caps the body size; zero means unlimited.
	MaxBytes int64
}

// StatusError is returned for non-2xx asset responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetch implements Fetcher.
func (f HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.MaxBytes > 0 && int64(len(data)) > f.MaxBytes {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", url, f.MaxBytes)
	}
	return data, nil
}
