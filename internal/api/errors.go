package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError means a response was obtained but its status indicates failure.
// Message is best-effort: the body's detail/message/error field when the
// body is JSON, the status line otherwise.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// NetworkError means the transport failed before any response was
// obtained (DNS, connection refused, timeout).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// IsAuthError reports whether err is an authorization failure, the case
// that invalidates the token cache and is never retried.
func IsAuthError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}
