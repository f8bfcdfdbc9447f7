package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/ad-asset-client/pkg/adunit"
	"github.com/Sternrassler/ad-asset-client/pkg/cache"
	"github.com/Sternrassler/ad-asset-client/pkg/config"
	"github.com/Sternrassler/ad-asset-client/pkg/logging"
	"github.com/Sternrassler/ad-asset-client/pkg/prefetch"
	"github.com/Sternrassler/ad-asset-client/pkg/tracking"
)

// maxUnitBytes caps the ad unit documents accepted by /cache/prefetch.
const maxUnitBytes = 1 << 20

func main() {
	cfg, err := config.Load(getEnv("ADCACHE_CONFIG", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:      logging.LogLevel(cfg.LogLevel),
		Output:     os.Stderr,
		FilePath:   cfg.LogFilePath,
		MaxSizeMB:  cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
	})

	store, err := cache.NewStore(cfg.CacheDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.CacheDir).Msg("Failed to open asset cache")
	}
	janitor := cache.NewJanitor(store, cfg.TemplateTTLDays, logger)

	var (
		redisClient *redis.Client
		sink        tracking.Sink = tracking.LogSink{Logger: logging.NewLogger("tracking")}
		redisSink   *tracking.RedisSink
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		redisCfg := tracking.DefaultRedisConfig(cfg.TrackingKey)
		redisCfg.MaxLen = cfg.TrackingMaxLen
		redisSink, err = tracking.NewRedisSink(redisClient, redisCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create tracking sink")
		}
		sink = redisSink
		logger.Info().Str("addr", cfg.RedisAddr).Str("key", cfg.TrackingKey).Msg("Tracking events to Redis")
	}

	downloader := prefetch.NewDownloader(
		prefetch.HTTPFetcher{Client: &http.Client{Timeout: cfg.DownloadTimeout}},
		store, sink, prefetch.ConfigFromSnapshot(cfg), logger,
	)

	a := &agent{
		store:      store,
		janitor:    janitor,
		checker:    cache.NewAvailabilityChecker(store, logger),
		downloader: downloader,
		redis:      redisClient,
		events:     redisSink,
		logger:     logging.NewLogger("adcache-agent"),
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.ListenAddr).
			Str("cache_root", store.Root()).
			Str("client", cfg.UserAgent()).
			Msg("Starting adcache agent")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Shutdown incomplete")
	}
	if redisSink != nil {
		_ = redisSink.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	logger.Info().Msg("Agent stopped")
}

// agent serves the operational endpoints.
type agent struct {
	store      *cache.Store
	janitor    *cache.Janitor
	checker    *cache.AvailabilityChecker
	downloader *prefetch.Downloader
	redis      *redis.Client
	events     *tracking.RedisSink
	logger     zerolog.Logger
}

func (a *agent) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", a.readyHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/cache/info", a.cacheInfoHandler)
	mux.HandleFunc("/cache/sweep", a.sweepHandler)
	mux.HandleFunc("/cache/prefetch", a.prefetchHandler)
	mux.HandleFunc("/events", a.eventsHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (a *agent) readyHandler(w http.ResponseWriter, r *http.Request) {
	if a.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	if _, err := os.Stat(a.store.Root()); err != nil {
		http.Error(w, "cache root unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (a *agent) cacheInfoHandler(w http.ResponseWriter, r *http.Request) {
	info, err := a.store.FolderInfo()
	if err != nil {
		http.Error(w, fmt.Sprintf("folder info failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type sweepResponse struct {
	Cutoff          time.Time `json:"cutoff"`
	FilesRemoved    int       `json:"files_removed"`
	DirsRemoved     int       `json:"dirs_removed"`
	Failures        int       `json:"failures"`
	SentinelRemoved bool      `json:"sentinel_removed"`
}

func (a *agent) sweepHandler(w http.ResponseWriter, r *http.Request) {
	var report cache.SweepReport
	switch r.Method {
	case http.MethodGet:
		report = a.janitor.LastReport()
	case http.MethodPost:
		report = a.janitor.Sweep(time.Now())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{
		Cutoff:          report.Cutoff,
		FilesRemoved:    report.FilesRemoved,
		DirsRemoved:     report.DirsRemoved,
		Failures:        report.Failures,
		SentinelRemoved: report.SentinelRemoved,
	})
}

type prefetchResponse struct {
	AdID       string   `json:"ad_id"`
	Ready      bool     `json:"ready"`
	Downloaded int      `json:"downloaded"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// prefetchHandler accepts an ad unit document and caches its assets.
func (a *agent) prefetchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var doc map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUnitBytes)).Decode(&doc); err != nil {
		http.Error(w, fmt.Sprintf("invalid document: %v", err), http.StatusBadRequest)
		return
	}
	unit, err := adunit.Decode(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	report, err := a.downloader.DownloadUnit(r.Context(), unit)
	resp := prefetchResponse{
		AdID:       unit.AdID,
		Ready:      a.checker.AllCached(unit.CacheRefs()),
		Downloaded: report.Downloaded,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
	}
	if err != nil {
		for _, res := range report.Results {
			if res.Err != nil {
				resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", res.Asset, res.Err))
			}
		}
		a.logger.Warn().Err(err).Str("ad_id", unit.AdID).Msg("Prefetch incomplete")
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (a *agent) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		http.Error(w, "event store not configured", http.StatusNotFound)
		return
	}
	n := int64(50)
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	events, err := a.events.Recent(r.Context(), n)
	if err != nil {
		http.Error(w, fmt.Sprintf("read events: %v", err), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
