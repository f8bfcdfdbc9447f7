package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common errors returned by the client.
var (
	// ErrTransport is returned when the transport could not deliver a request.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidState is returned when a request is sent twice.
	ErrInvalidState = errors.New("invalid request state")

	// ErrResponseTooLarge is returned when a response body exceeds the
	// configured limit.
	ErrResponseTooLarge = errors.New("response body too large")
)

// RequestError ties a failure to the request it belongs to.
type RequestError struct {
	RequestID string
	URI       string
	Err       error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s %s: %v", e.RequestID, e.URI, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// FailureClass labels transport failures for metrics and logs.
type FailureClass string

const (
	// FailureTimeout is a deadline or network timeout.
	FailureTimeout FailureClass = "timeout"

	// FailureCanceled is a canceled context.
	FailureCanceled FailureClass = "canceled"

	// FailureNetwork is any other transport error.
	FailureNetwork FailureClass = "network"
)

// classifyTransportError categorizes a transport error.
func classifyTransportError(err error) FailureClass {
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureNetwork
}
