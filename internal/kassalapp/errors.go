package kassalapp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAPIKey is returned when the API rejects the bearer token.
	ErrInvalidAPIKey = errors.New("kassalapp: invalid api key")

	// ErrRequestFailed is returned for any other failed request, including
	// transport errors. *APIError wraps it.
	ErrRequestFailed = errors.New("kassalapp: request failed")
)

// APIError describes a non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("kassalapp: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("kassalapp: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrRequestFailed
}
