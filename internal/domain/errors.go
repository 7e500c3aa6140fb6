package domain

import (
	"errors"
	"fmt"
)

var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrInvalidListing   = errors.New("invalid listing data")
	ErrUnauthenticated  = errors.New("not logged in")
	ErrDisabledQuery    = errors.New("query disabled")
	ErrInvalidResponse  = errors.New("invalid response body")
	ErrMissingUserID    = errors.New("user id is required")
	ErrMissingListingID = errors.New("listing id is required")
)

// NetworkError reports a request that never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return "network request failed"
	}
	return fmt.Sprintf("%s: network request failed", e.Op)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError reports a response with a non-2xx status. Message is the backend's
// "error" field when it sent one, otherwise a per-operation fallback.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is, or wraps, a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// AsAPIError returns the *APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
