package providers

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// NetworkError is a transport-level failure (DNS, connect, TLS, mid-stream
// read). Origin names the backend that failed.
type NetworkError struct {
	Origin string
	Err    error
}

func NewNetworkError(origin string, err error) *NetworkError {
	return &NetworkError{Origin: origin, Err: err}
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error talking to %s: %v", e.Origin, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Origin     string
	StatusCode int
	Body       string
}

func NewAPIError(origin string, statusCode int, body string) *APIError {
	return &APIError{Origin: origin, StatusCode: statusCode, Body: body}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Origin, e.StatusCode, e.Body)
}

// IsAbort reports whether err is a user- or system-initiated cancellation.
// Aborts are not failures: the controller freezes partial content without
// attaching an error.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled)
}

// ClassifyTransport wraps an error from a backend call as a NetworkError
// unless it is already classified or an abort.
func ClassifyTransport(origin string, err error) error {
	if err == nil {
		return nil
	}
	if IsAbort(err) {
		return err
	}
	var apiErr *APIError
	var netErr *NetworkError
	if errors.As(err, &apiErr) || errors.As(err, &netErr) {
		return err
	}
	return NewNetworkError(origin, err)
}
