package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by stores when a call ID has no session.
// The session manager translates it into an explicit "missing" result.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownSelector marks a language selector outside the catalog.
// It is only ever logged: resolution falls back to the default locale.
var ErrUnknownSelector = errors.New("unknown language selector")

// BackendErrorKind classifies why the generation backend could not answer.
type BackendErrorKind string

const (
	BackendTimeout     BackendErrorKind = "timeout"
	BackendAuth        BackendErrorKind = "auth"
	BackendRateLimit   BackendErrorKind = "rate_limit"
	BackendMalformed   BackendErrorKind = "malformed"
	BackendUnavailable BackendErrorKind = "unavailable"
)

// BackendError is returned by the dialogue engine when a generation call
// cannot complete. The controller recovers from it with the locale's apology prompt.
type BackendError struct {
	Provider string
	Kind     BackendErrorKind
	Err      error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s backend error (%s)", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s backend error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError builds a BackendError for the given provider and kind.
func NewBackendError(provider string, kind BackendErrorKind, err error) *BackendError {
	return &BackendError{Provider: provider, Kind: kind, Err: err}
}

// AsBackendError reports whether err is (or wraps) a BackendError.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
