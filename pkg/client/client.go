// Package client drives signed backend requests through their lifecycle
// and caches the assets of successful ad responses.
//
// Every request moves Built → Sent → Succeeded or Failed exactly once.
// The client never retries; callers build a fresh request instead.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/ad-asset-client/pkg/adunit"
	"github.com/Sternrassler/ad-asset-client/pkg/cache"
	"github.com/Sternrassler/ad-asset-client/pkg/config"
	"github.com/Sternrassler/ad-asset-client/pkg/prefetch"
	"github.com/Sternrassler/ad-asset-client/pkg/request"
	"github.com/Sternrassler/ad-asset-client/pkg/response"
	"github.com/Sternrassler/ad-asset-client/pkg/tracking"
)

// Prometheus metrics for backend requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adcache_requests_total",
		Help: "Total backend requests by URI and outcome",
	}, []string{"uri", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adcache_request_duration_seconds",
		Help:    "Backend request duration in seconds by URI",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"uri"})

	transportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adcache_transport_errors_total",
		Help: "Total transport failures by class",
	}, []string{"class"})
)

// DefaultMaxResponseBytes caps response bodies read from the transport.
const DefaultMaxResponseBytes = 4 << 20

// Transport performs HTTP round trips. *http.Client satisfies it.
type Transport interface {
	Do(*http.Request) (*http.Response, error)
}

// State is the lifecycle position of a Request.
type State string

const (
	StateBuilt     State = "built"
	StateSent      State = "sent"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Request is one signed backend call.
type Request struct {
	ID       string
	Location string
	Envelope *request.Envelope

	mu       sync.Mutex
	state    State
	document response.Document
	err      error
}

// State returns the current lifecycle state.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the document of a succeeded request or the error of a
// failed one. Both are nil before the request completes.
func (r *Request) Result() (response.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.document, r.err
}

func (r *Request) transition(from, to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return false
	}
	r.state = to
	return true
}

func (r *Request) complete(doc response.Document, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.state = StateFailed
		r.err = err
		return
	}
	r.state = StateSucceeded
	r.document = doc
}

// Config holds the client collaborators.
type Config struct {
	// Transport sends requests (REQUIRED).
	Transport Transport

	// Settings publishes the configuration snapshot (REQUIRED).
	Settings *config.Holder

	// Builder assembles and signs requests (REQUIRED).
	Builder *request.Builder

	// Parser classifies responses. Defaults to a parser reporting to Sink.
	Parser *response.Parser

	// Store, Downloader and Checker enable asset caching; all optional.
	Store      *cache.Store
	Downloader *prefetch.Downloader
	Checker    *cache.AvailabilityChecker

	// Sink receives transport failure events. Defaults to NopSink.
	Sink tracking.Sink

	// MaxResponseBytes caps response bodies. Defaults to DefaultMaxResponseBytes.
	MaxResponseBytes int64

	Logger zerolog.Logger
}

// Client is the ad backend client.
type Client struct {
	transport  Transport
	settings   *config.Holder
	builder    *request.Builder
	parser     *response.Parser
	store      *cache.Store
	downloader *prefetch.Downloader
	checker    *cache.AvailabilityChecker
	sink       tracking.Sink
	maxBody    int64
	logger     zerolog.Logger
}

// New creates a new Client.
func New(cfg Config) (*Client, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings holder is required")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("request builder is required")
	}
	if cfg.Downloader != nil && cfg.Store == nil {
		return nil, fmt.Errorf("downloader requires a store")
	}

	logger := cfg.Logger.With().Str("component", "ad-client").Logger()

	sink := cfg.Sink
	if sink == nil {
		sink = tracking.NopSink{}
	}
	parser := cfg.Parser
	if parser == nil {
		parser = response.NewParser(sink, cfg.Logger)
	}
	checker := cfg.Checker
	if checker == nil && cfg.Store != nil {
		checker = cache.NewAvailabilityChecker(cfg.Store, cfg.Logger)
	}
	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBytes
	}

	return &Client{
		transport:  cfg.Transport,
		settings:   cfg.Settings,
		builder:    cfg.Builder,
		parser:     parser,
		store:      cfg.Store,
		downloader: cfg.Downloader,
		checker:    checker,
		sink:       sink,
		maxBody:    maxBody,
		logger:     logger,
	}, nil
}

// Build creates a signed request in state Built using the current
// configuration snapshot.
func (c *Client) Build(call request.Call, location string) (*Request, error) {
	snapshot := c.settings.Load()
	env, err := c.builder.Build(snapshot, call)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return &Request{
		ID:       uuid.NewString(),
		Location: location,
		Envelope: env,
		state:    StateBuilt,
	}, nil
}

// Send hands a Built request to the transport and waits for the outcome.
// The returned error is also stored on the request.
func (c *Client) Send(ctx context.Context, req *Request) (response.Document, error) {
	env := req.Envelope
	if !req.transition(StateBuilt, StateSent) {
		return nil, &RequestError{RequestID: req.ID, URI: env.URI, Err: ErrInvalidState}
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(env.URI).Observe(time.Since(start).Seconds())
	}()

	logger := c.logger.With().Str("request_id", req.ID).Str("uri", env.URI).Logger()
	logger.Debug().Str("method", env.Method).Msg("Sending request")

	httpReq, err := env.HTTPRequest(ctx)
	if err != nil {
		return c.fail(req, err)
	}

	resp, err := c.transport.Do(httpReq)
	if err != nil {
		class := classifyTransportError(err)
		transportErrorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(env.URI, "transport_error").Inc()
		logger.Error().Err(err).Str("class", string(class)).Msg("Transport failed")
		c.sink.Track(tracking.NewEvent(tracking.EventRequestError, err.Error(), req.Location))
		return c.fail(req, fmt.Errorf("%w: %w", ErrTransport, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		transportErrorsTotal.WithLabelValues(string(FailureNetwork)).Inc()
		requestsTotal.WithLabelValues(env.URI, "transport_error").Inc()
		logger.Error().Err(err).Msg("Reading response failed")
		return c.fail(req, fmt.Errorf("%w: read body: %w", ErrTransport, err))
	}
	if int64(len(body)) > c.maxBody {
		requestsTotal.WithLabelValues(env.URI, "too_large").Inc()
		logger.Error().Int64("limit", c.maxBody).Msg("Response body too large")
		return c.fail(req, fmt.Errorf("%w: exceeds %d bytes", ErrResponseTooLarge, c.maxBody))
	}

	doc, err := c.parser.Parse(body, resp.StatusCode, env.CheckStatus, req.Location)
	if err != nil {
		requestsTotal.WithLabelValues(env.URI, string(response.KindOf(err))).Inc()
		return c.fail(req, err)
	}

	requestsTotal.WithLabelValues(env.URI, strconv.Itoa(resp.StatusCode)).Inc()
	logger.Debug().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("Request succeeded")
	req.complete(doc, nil)
	return doc, nil
}

func (c *Client) fail(req *Request, err error) (response.Document, error) {
	wrapped := &RequestError{RequestID: req.ID, URI: req.Envelope.URI, Err: err}
	req.complete(nil, wrapped)
	return nil, wrapped
}

// Execute builds and sends one request.
func (c *Client) Execute(ctx context.Context, call request.Call, location string) (*Request, response.Document, error) {
	req, err := c.Build(call, location)
	if err != nil {
		return nil, nil, err
	}
	doc, err := c.Send(ctx, req)
	return req, doc, err
}

// LoadAd requests an ad unit, decodes it and caches its assets. The unit is
// returned even when some assets could not be cached; Ready reports whether
// it can be shown.
func (c *Client) LoadAd(ctx context.Context, call request.Call, location string) (adunit.AdUnit, error) {
	call.CheckStatus = true
	_, doc, err := c.Execute(ctx, call, location)
	if err != nil {
		return adunit.AdUnit{}, err
	}

	unit, err := adunit.Decode(doc)
	if err != nil {
		c.logger.Warn().Err(err).Str("location", location).Msg("Ad unit rejected")
		c.sink.Track(tracking.NewEvent(tracking.EventSerializationError, err.Error(), location))
		return adunit.AdUnit{}, err
	}

	if _, err := c.CacheAssets(ctx, unit); err != nil {
		c.logger.Warn().Err(err).Str("ad_id", unit.AdID).Msg("Some assets were not cached")
		return unit, err
	}
	return unit, nil
}

// CacheAssets downloads the assets of unit that are not cached yet.
func (c *Client) CacheAssets(ctx context.Context, unit adunit.AdUnit) (prefetch.Report, error) {
	if c.downloader == nil {
		return prefetch.Report{}, errors.New("asset caching is not configured")
	}
	return c.downloader.DownloadUnit(ctx, unit)
}

// Ready reports whether every asset of unit is cached.
func (c *Client) Ready(unit adunit.AdUnit) bool {
	if c.checker == nil {
		return false
	}
	return c.checker.AllCached(unit.CacheRefs())
}

// Settings returns the configuration holder.
func (c *Client) Settings() *config.Holder {
	return c.settings
}
