package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by upstream API clients.
var (
	// ErrNotFound indicates the resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrAuth indicates an authentication error (missing/invalid API key).
	ErrAuth = errors.New("authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNetwork indicates a network connectivity issue.
	ErrNetwork = errors.New("network error")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response")
)

// APIError represents a non-success HTTP status from an upstream service.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsRetryable reports whether a request that failed with err may succeed
// if repeated: network failures, rate limiting and server errors.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNetwork) || IsRateLimited(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}

// CheckHTTPErrors returns an error if the HTTP status indicates a problem.
func CheckHTTPErrors(service string, status int) error {
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w: status %d", service, ErrNotFound, status)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w: status %d", service, ErrAuth, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: status %d", service, ErrRateLimited, status)
	case status >= 400:
		return &APIError{
			Service:    service,
			StatusCode: status,
			Message:    http.StatusText(status),
		}
	}
	return nil
}
