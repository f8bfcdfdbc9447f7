// Package response turns raw backend responses into a document or a
// ClassifiedError. Parsing never panics past Parse and reports each
// failure once to the tracking sink.
package response

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/ad-asset-client/pkg/tracking"
)

// Document is a decoded success response.
type Document map[string]any

// Status returns the embedded status field, if present and numeric.
func (d Document) Status() (int, bool) {
	switch v := d["status"].(type) {
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Message returns the embedded message field, or "".
func (d Document) Message() string {
	msg, _ := d["message"].(string)
	return msg
}

var responsesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "adcache_responses_total",
		Help: "Parsed backend responses by outcome",
	},
	[]string{"outcome"},
)

// Parser classifies backend responses. It is stateless apart from its
// collaborators and safe for concurrent use.
type Parser struct {
	sink   tracking.Sink
	logger zerolog.Logger
}

// NewParser creates a Parser. A nil sink discards events.
func NewParser(sink tracking.Sink, logger zerolog.Logger) *Parser {
	if sink == nil {
		sink = tracking.NopSink{}
	}
	return &Parser{
		sink:   sink,
		logger: logger.With().Str("component", "response-parser").Logger(),
	}
}

// EmbeddedStatusOK is the only embedded status accepted as success.
const EmbeddedStatusOK = 200

// Parse decodes body. statusCode is the HTTP status (0 when unknown); any
// 2xx passes. checkStatus enables the embedded status check, which is
// stricter: only EmbeddedStatusOK passes. The returned error is always a
// *ClassifiedError.
func (p *Parser) Parse(body []byte, statusCode int, checkStatus bool, location string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = p.fail(&ClassifiedError{
				Kind:        KindMiscellaneous,
				Description: fmt.Sprintf("panic while parsing response: %v", r),
			}, tracking.EventSerializationError, location)
		}
	}()

	if statusCode != 0 && (statusCode < 200 || statusCode > 299) {
		return nil, p.fail(statusError(statusCode, bodyMessage(body)), tracking.EventRequestError, location)
	}

	var raw any
	if decodeErr := json.Unmarshal(body, &raw); decodeErr != nil {
		return nil, p.fail(&ClassifiedError{
			Kind:        KindMiscellaneous,
			Description: "response body is not valid JSON",
			Err:         decodeErr,
		}, tracking.EventSerializationError, location)
	}

	object, ok := raw.(map[string]any)
	if !ok {
		return nil, p.fail(&ClassifiedError{
			Kind:        KindParseFailure,
			Description: fmt.Sprintf("response body is %T, want object", raw),
		}, tracking.EventSerializationError, location)
	}
	doc = Document(object)

	if checkStatus {
		if status, ok := doc.Status(); ok && status != EmbeddedStatusOK {
			return nil, p.fail(statusError(status, doc.Message()), tracking.EventRequestError, location)
		}
	}

	responsesTotal.WithLabelValues("success").Inc()
	return doc, nil
}

func (p *Parser) fail(ce *ClassifiedError, event, location string) error {
	responsesTotal.WithLabelValues(string(ce.Kind)).Inc()
	p.logger.Warn().
		Str("kind", string(ce.Kind)).
		Int("status", ce.Status).
		Str("location", location).
		Err(ce.Err).
		Msg(ce.Description)
	p.sink.Track(tracking.NewEvent(event, ce.Error(), location))
	return ce
}

// bodyMessage extracts a message from an error body, which may or may not be JSON.
func bodyMessage(body []byte) string {
	var doc Document
	if err := json.Unmarshal(body, &doc); err == nil {
		if msg := doc.Message(); msg != "" {
			return msg
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return msg
}
