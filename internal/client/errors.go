package client

import (
	"fmt"
	"net/http"
	"time"
)

// NetworkError means the request never produced a response (DNS, connection
// reset, timeout). Network errors are retried for idempotent operations.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ClientError is a 4xx response. Client errors are not retried (429 is
// surfaced as RateLimitedError instead).
type ClientError struct {
	Status  int
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Status, e.Message)
}

// ServerError is a 5xx response, retried up to policy limits then surfaced
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// RateLimitedError is a 429 response; retried with backoff then surfaced
type RateLimitedError struct {
	Message string
}

func (e *RateLimitedError) Error() string {
	if e.Message == "" {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// CircuitOpenError means the breaker for the operation is open and the call
// failed fast without touching the network.
type CircuitOpenError struct {
	Operation string
	RetryAt   time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s until %s", e.Operation, e.RetryAt.Format(time.RFC3339))
}

// errorFromStatus maps a non-2xx response to the error taxonomy
func errorFromStatus(status int, message string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &RateLimitedError{Message: message}
	case status >= 500:
		return &ServerError{Status: status, Message: message}
	default:
		return &ClientError{Status: status, Message: message}
	}
}

// countsAsBreakerFailure reports whether the error says anything about the
// backend's availability. Deterministic rejections (404, 409, validation
// failures) come from a healthy backend and must not trip the breaker.
func countsAsBreakerFailure(err error) bool {
	switch e := err.(type) {
	case *NetworkError, *ServerError, *RateLimitedError:
		return true
	case *ClientError:
		return e.Status == http.StatusRequestTimeout
	default:
		return false
	}
}

// retryable reports whether the failure is transient enough to retry. Only
// network errors and a fixed set of statuses qualify.
func retryable(err error) bool {
	switch e := err.(type) {
	case *NetworkError:
		return true
	case *RateLimitedError:
		return true
	case *ServerError:
		switch e.Status {
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	case *ClientError:
		return e.Status == http.StatusRequestTimeout
	default:
		return false
	}
}
