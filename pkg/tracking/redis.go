package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for event delivery.
var (
	trackingEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adcache_tracking_events_total",
		Help: "Total tracking events by delivery result",
	}, []string{"result"}) // "delivered", "dropped", "failed"
)

// RedisConfig configures a RedisSink.
type RedisConfig struct {
	// Key is the Redis list events are pushed onto (newest first).
	Key string

	// MaxLen trims the list after every push. 0 disables trimming.
	MaxLen int64

	// Buffer is the number of events queued before new ones are dropped.
	Buffer int

	// WriteTimeout bounds a single push.
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns a sink configuration for the given list key.
func DefaultRedisConfig(key string) RedisConfig {
	return RedisConfig{
		Key:          key,
		MaxLen:       1000,
		Buffer:       256,
		WriteTimeout: 2 * time.Second,
	}
}

// RedisSink pushes events as JSON onto a Redis list from a background
// goroutine. Track drops the event when the queue is full.
type RedisSink struct {
	redis  *redis.Client
	config RedisConfig
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// NewRedisSink starts the delivery goroutine. Call Close to flush and stop it.
func NewRedisSink(client *redis.Client, cfg RedisConfig, logger zerolog.Logger) (*RedisSink, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("tracking key is required")
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}

	s := &RedisSink{
		redis:  client,
		config: cfg,
		logger: logger.With().Str("component", "tracking").Logger(),
		queue:  make(chan Event, cfg.Buffer),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Track implements Sink. Events tracked after Close are dropped.
func (s *RedisSink) Track(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		trackingEventsTotal.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case s.queue <- e:
	default:
		trackingEventsTotal.WithLabelValues("dropped").Inc()
		s.logger.Warn().Str("event", e.Name).Msg("Tracking queue full, dropping event")
	}
}

// Close stops accepting events and waits until queued ones are delivered.
func (s *RedisSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	<-s.done
	return nil
}

func (s *RedisSink) run() {
	defer close(s.done)
	for e := range s.queue {
		if err := s.push(e); err != nil {
			trackingEventsTotal.WithLabelValues("failed").Inc()
			s.logger.Warn().Err(err).Str("event", e.Name).Msg("Failed to deliver tracking event")
			continue
		}
		trackingEventsTotal.WithLabelValues("delivered").Inc()
	}
}

func (s *RedisSink) push(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()

	pipe := s.redis.Pipeline()
	pipe.LPush(ctx, s.config.Key, data)
	if s.config.MaxLen > 0 {
		pipe.LTrim(ctx, s.config.Key, 0, s.config.MaxLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push event to redis: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest events stored under the sink's key.
func (s *RedisSink) Recent(ctx context.Context, n int64) ([]Event, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := s.redis.LRange(ctx, s.config.Key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read events from redis: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			s.logger.Warn().Err(err).Msg("Skipping malformed tracking event")
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
