// Package adapters provides clients for the external capabilities the
// discovery pipeline depends on: video search and metadata, transcript
// retrieval, page reading, image search, AI text extraction, and purchase
// link resolution. Every adapter returns a result or a typed error; failures
// never propagate past the adapter boundary as panics.
package adapters

import (
	"errors"
	"fmt"
)

// Sentinel failure kinds. Callers match these with errors.Is.
var (
	// ErrUnavailable marks an expected absence, like a video without captions.
	ErrUnavailable = errors.New("unavailable")
	// ErrUnreachable marks a target that could not be fetched by any strategy.
	ErrUnreachable = errors.New("unreachable")
	// ErrTimeout marks a call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrRateLimited marks a third-party quota rejection.
	ErrRateLimited = errors.New("rate limited")
	// ErrMalformed marks a response that could not be decoded or validated.
	ErrMalformed = errors.New("malformed response")
)

// Error is the uniform failure value returned by every adapter.
type Error struct {
	Adapter string // which adapter failed ("search", "transcript", ...)
	Kind    error  // one of the sentinel kinds above
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s adapter: %s: %s: %v", e.Adapter, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s adapter: %s: %s", e.Adapter, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel kind so errors.Is(err, ErrTimeout) works on
// wrapped adapter errors.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewError builds an adapter error.
func NewError(adapter string, kind error, message string, cause error) *Error {
	return &Error{Adapter: adapter, Kind: kind, Message: message, Cause: cause}
}
