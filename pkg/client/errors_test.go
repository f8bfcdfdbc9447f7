package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected FailureClass
	}{
		{
			name:     "canceled context",
			err:      fmt.Errorf("do: %w", context.Canceled),
			expected: FailureCanceled,
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: FailureTimeout,
		},
		{
			name:     "net timeout",
			err:      fmt.Errorf("dial: %w", timeoutError{}),
			expected: FailureTimeout,
		},
		{
			name:     "connection refused",
			err:      errors.New("connection refused"),
			expected: FailureNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTransportError(tt.err); got != tt.expected {
				t.Errorf("classifyTransportError(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRequestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RequestError
		expected string
	}{
		{
			name: "transport failure",
			err: &RequestError{
				RequestID: "req-1",
				URI:       "/api/get",
				Err:       fmt.Errorf("%w: %w", ErrTransport, errors.New("connection refused")),
			},
			expected: "request req-1 /api/get: transport failure: connection refused",
		},
		{
			name: "invalid state",
			err: &RequestError{
				RequestID: "req-2",
				URI:       "/api/install",
				Err:       ErrInvalidState,
			},
			expected: "request req-2 /api/install: invalid request state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRequestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &RequestError{RequestID: "x", Err: fmt.Errorf("%w: %w", ErrTransport, cause)}

	if !errors.Is(err, ErrTransport) {
		t.Error("errors.Is(err, ErrTransport) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}

	var reqErr *RequestError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &reqErr) || reqErr.RequestID != "x" {
		t.Errorf("errors.As() = %v", reqErr)
	}
}
