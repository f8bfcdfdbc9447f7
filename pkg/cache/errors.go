package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks every failure reported by the store. Callers treat it as
	// "not cached" and fetch again.
	ErrIO = errors.New("cache i/o failure")

	// ErrInvalidNamespace is returned for namespaces outside the closed set.
	ErrInvalidNamespace = errors.New("invalid cache namespace")

	// ErrInvalidName is returned for empty file names or names that escape
	// their namespace directory.
	ErrInvalidName = errors.New("invalid cache file name")

	// ErrProtectedPath is returned when Delete targets the cache root or a
	// namespace directory.
	ErrProtectedPath = errors.New("refusing to delete protected cache path")
)

// OpError describes a failed store operation.
// It matches both ErrIO and the underlying cause with errors.Is.
type OpError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes ErrIO and the underlying cause.
func (e *OpError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}
