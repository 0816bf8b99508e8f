// Package apierr defines the error taxonomy for calls against the task
// backend: API errors carrying an HTTP status, timeouts, and transport
// failures. Every layer above the HTTP client classifies errors through
// this package rather than inspecting response codes directly.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int             // HTTP status code
	Code    string          // machine-readable code, if the backend sent one
	Message string          // message from the error body, or raw body text
	Details json.RawMessage // structured details, nil if the body was not JSON
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// TimeoutError indicates the per-call deadline fired before completion.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s", e.Timeout)
}

// NetworkError wraps a transport-level failure (DNS, connection refused).
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	if e.Cause == nil {
		return "network error"
	}
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// StatusOf returns the HTTP status of an APIError in err's chain, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// IsRecoverable reports whether err is worth retrying: 5xx responses,
// timeouts and network failures, plus 408, 409 and 429, which signal
// transient contention rather than a malformed request. Other 4xx
// responses will fail identically on retry.
func IsRecoverable(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		switch ae.Status {
		case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
			return true
		}
		return ae.Status >= 500
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var ne *NetworkError
	return errors.As(err, &ne)
}

// UserMessage derives a human-readable message for err, keyed on status.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return fmt.Sprintf("the server took too long to respond (limit %s)", te.Timeout)
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return "could not reach the server, check your connection"
	}
	var ae *APIError
	if errors.As(err, &ae) {
		switch {
		case ae.Status == http.StatusBadRequest:
			return "invalid data sent to the server"
		case ae.Status == http.StatusUnauthorized:
			return "unauthorized, check your credentials"
		case ae.Status == http.StatusNotFound:
			return "resource not found"
		case ae.Status == http.StatusTooManyRequests:
			return "rate limited, slow down and try again"
		case ae.Status >= 500:
			return "the service is temporarily unavailable"
		}
	}
	return err.Error()
}
