// ABOUTME: Error hierarchy for the board REST API client.
// ABOUTME: Maps HTTP status codes to typed errors carrying retryability.
package api

import (
	"encoding/json"
)

// ClientError is the base error type for all API client errors.
type ClientError struct {
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns false for the base ClientError. Subtypes override this.
func (e *ClientError) IsRetryable() bool {
	return false
}

// ServerRejection represents a response the server answered with a non-2xx
// status. It carries the status code, the server's error code string, and
// the raw response body.
type ServerRejection struct {
	ClientError
	StatusCode int
	Code       string
	Retryable  bool
	Raw        json.RawMessage
}

func (e *ServerRejection) Error() string { return e.ClientError.Error() }
func (e *ServerRejection) Unwrap() error { return e.ClientError.Unwrap() }

// IsRetryable returns the Retryable flag set on the rejection.
func (e *ServerRejection) IsRetryable() bool { return e.Retryable }

// As enables errors.As to match the embedded ClientError.
func (e *ServerRejection) As(target any) bool {
	if t, ok := target.(**ClientError); ok {
		*t = &e.ClientError
		return true
	}
	return false
}

// rejectionAs is shared by the subtypes so errors.As can match both
// *ServerRejection and *ClientError from any of them.
func rejectionAs(e *ServerRejection, target any) bool {
	switch t := target.(type) {
	case **ServerRejection:
		*t = e
		return true
	case **ClientError:
		*t = &e.ClientError
		return true
	default:
		return false
	}
}

// NotFoundError represents a 404 response. Not retryable.
type NotFoundError struct{ ServerRejection }

func (e *NotFoundError) Error() string { return e.ServerRejection.Error() }
func (e *NotFoundError) Unwrap() error { return e.ServerRejection.Unwrap() }
func (e *NotFoundError) IsRetryable() bool { return false }
func (e *NotFoundError) As(target any) bool { return rejectionAs(&e.ServerRejection, target) }

// InvalidRequestError represents a 400 or 422 validation response. Not retryable.
type InvalidRequestError struct{ ServerRejection }

func (e *InvalidRequestError) Error() string { return e.ServerRejection.Error() }
func (e *InvalidRequestError) Unwrap() error { return e.ServerRejection.Unwrap() }
func (e *InvalidRequestError) IsRetryable() bool { return false }
func (e *InvalidRequestError) As(target any) bool { return rejectionAs(&e.ServerRejection, target) }

// QuotaExceededError represents the server rejecting a create/react for an
// exhausted per-user quota. Not retryable until the quota refreshes.
type QuotaExceededError struct{ ServerRejection }

func (e *QuotaExceededError) Error() string { return e.ServerRejection.Error() }
func (e *QuotaExceededError) Unwrap() error { return e.ServerRejection.Unwrap() }
func (e *QuotaExceededError) IsRetryable() bool { return false }
func (e *QuotaExceededError) As(target any) bool { return rejectionAs(&e.ServerRejection, target) }

// BoardClosedError represents a 409 conflict for mutations on a closed board.
// Not retryable.
type BoardClosedError struct{ ServerRejection }

func (e *BoardClosedError) Error() string { return e.ServerRejection.Error() }
func (e *BoardClosedError) Unwrap() error { return e.ServerRejection.Unwrap() }
func (e *BoardClosedError) IsRetryable() bool { return false }
func (e *BoardClosedError) As(target any) bool { return rejectionAs(&e.ServerRejection, target) }

// RateLimitError represents a 429 Too Many Requests response. Retryable.
type RateLimitError struct{ ServerRejection }

func (e *RateLimitError) Error() string { return e.ServerRejection.Error() }
func (e *RateLimitError) Unwrap() error { return e.ServerRejection.Unwrap() }
func (e *RateLimitError) IsRetryable() bool { return true }
func (e *RateLimitError) As(target any) bool { return rejectionAs(&e.ServerRejection, target) }

// ServerError represents a 5xx response. Retryable.
type ServerError struct{ ServerRejection }

func (e *ServerError) Error() string { return e.ServerRejection.Error() }
func (e *ServerError) Unwrap() error { return e.ServerRejection.Unwrap() }
func (e *ServerError) IsRetryable() bool { return true }
func (e *ServerError) As(target any) bool { return rejectionAs(&e.ServerRejection, target) }

// NetworkError represents a request that never completed (DNS failure,
// connection refused, timeout). Retryable.
type NetworkError struct{ ClientError }

func (e *NetworkError) Error() string { return e.ClientError.Error() }
func (e *NetworkError) Unwrap() error { return e.ClientError.Unwrap() }
func (e *NetworkError) IsRetryable() bool { return true }

func (e *NetworkError) As(target any) bool {
	if t, ok := target.(**ClientError); ok {
		*t = &e.ClientError
		return true
	}
	return false
}

// Server error codes carried in rejection bodies, used to disambiguate
// statuses that map to more than one condition.
const (
	codeQuotaExceeded = "quota_exceeded"
	codeBoardClosed   = "board_closed"
)

// ErrorFromStatusCode maps an HTTP status code and error body to the
// appropriate typed error. Unknown status codes return a bare
// *ServerRejection marked retryable, on the assumption that unrecognized
// failures are transient.
func ErrorFromStatusCode(statusCode int, message, code string, raw json.RawMessage) error {
	base := ServerRejection{
		ClientError: ClientError{Message: message},
		StatusCode:  statusCode,
		Code:        code,
		Raw:         raw,
	}

	switch {
	case statusCode == 400 || statusCode == 422:
		if code == codeQuotaExceeded {
			return &QuotaExceededError{ServerRejection: base}
		}
		return &InvalidRequestError{ServerRejection: base}
	case statusCode == 403 && code == codeQuotaExceeded:
		return &QuotaExceededError{ServerRejection: base}
	case statusCode == 404:
		return &NotFoundError{ServerRejection: base}
	case statusCode == 409:
		if code == codeQuotaExceeded {
			return &QuotaExceededError{ServerRejection: base}
		}
		return &BoardClosedError{ServerRejection: base}
	case statusCode == 429:
		base.Retryable = true
		return &RateLimitError{ServerRejection: base}
	case statusCode >= 500 && statusCode <= 599:
		base.Retryable = true
		return &ServerError{ServerRejection: base}
	default:
		base.Retryable = true
		return &base
	}
}
