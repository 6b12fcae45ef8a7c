package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a listing id no longer resolves.
var ErrNotFound = errors.New("listing not found")

// TransportError reports a network failure, timeout, or unexpected HTTP
// status. It is never fatal; the next poll cycle retries implicitly.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports a response body that could not be decoded.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
