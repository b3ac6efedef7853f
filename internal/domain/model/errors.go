package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across adapters. Callers classify with errors.Is.
var (
	// ErrValidation marks missing or empty required input.
	ErrValidation = errors.New("validation failed")
	// ErrAuth marks a token that could not be obtained or parsed.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork marks transport-level failures (refused, TLS, timeout).
	ErrNetwork = errors.New("network failure")
	// ErrNotFound marks a pipeline id unknown locally or remotely.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited marks an HTTP 429 from the trigger endpoint.
	ErrRateLimited = errors.New("rate limited")
	// ErrParse marks a registry store the text engine cannot make sense of.
	ErrParse = errors.New("malformed registry store")
)

// APIError carries the status code and raw body of a non-2xx remote response.
// It wraps ErrNotFound or ErrRateLimited when the status maps onto one.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps well-known status codes onto the sentinel taxonomy.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	default:
		return nil
	}
}
