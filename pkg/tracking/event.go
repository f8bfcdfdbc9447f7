// Package tracking delivers client telemetry events to a fire-and-forget sink.
// Sinks never block the caller and never return errors.
package tracking

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event names emitted by this module.
const (
	EventSerializationError = "serialization_error"
	EventRequestError       = "request_error"
	EventAssetChecksum      = "asset_checksum_mismatch"
	EventAssetDownload      = "asset_download_error"
)

// Event is one telemetry record.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(name, message, location string) Event {
	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		Message:   message,
		Location:  location,
		Timestamp: time.Now().UTC(),
	}
}

// Sink receives events. Track must return immediately.
type Sink interface {
	Track(Event)
}

// NopSink discards every event.
type NopSink struct{}

// Track implements Sink.
func (NopSink) Track(Event) {}

// LogSink writes events to a zerolog logger.
type LogSink struct {
	Logger zerolog.Logger
}

// Track implements Sink.
func (s LogSink) Track(e Event) {
	s.Logger.Warn().
		Str("event_id", e.ID).
		Str("event", e.Name).
		Str("location", e.Location).
		Msg(e.Message)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Track implements Sink.
func (r *Recorder) Track(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
