// ABOUTME: Tests for the API error hierarchy: status mapping, retryability, and errors.As matching.
package api

import (
	"errors"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      string
		wantType  string
		retryable bool
	}{
		{"bad request", 400, "", "*api.InvalidRequestError", false},
		{"validation failure", 422, "", "*api.InvalidRequestError", false},
		{"quota via 422", 422, "quota_exceeded", "*api.QuotaExceededError", false},
		{"quota via 403", 403, "quota_exceeded", "*api.QuotaExceededError", false},
		{"not found", 404, "", "*api.NotFoundError", false},
		{"board closed conflict", 409, "board_closed", "*api.BoardClosedError", false},
		{"quota via 409", 409, "quota_exceeded", "*api.QuotaExceededError", false},
		{"rate limited", 429, "", "*api.RateLimitError", true},
		{"internal error", 500, "", "*api.ServerError", true},
		{"bad gateway", 502, "", "*api.ServerError", true},
		{"unknown status", 418, "", "*api.ServerRejection", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ErrorFromStatusCode(tt.status, "boom", tt.code, nil)
			if got := typeName(err); got != tt.wantType {
				t.Errorf("type = %s, want %s", got, tt.wantType)
			}
			if got := isRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func typeName(err error) string {
	switch err.(type) {
	case *InvalidRequestError:
		return "*api.InvalidRequestError"
	case *QuotaExceededError:
		return "*api.QuotaExceededError"
	case *NotFoundError:
		return "*api.NotFoundError"
	case *BoardClosedError:
		return "*api.BoardClosedError"
	case *RateLimitError:
		return "*api.RateLimitError"
	case *ServerError:
		return "*api.ServerError"
	case *ServerRejection:
		return "*api.ServerRejection"
	case *NetworkError:
		return "*api.NetworkError"
	default:
		return "unknown"
	}
}

func isRetryable(err error) bool {
	type retryable interface{ IsRetryable() bool }
	r, ok := err.(retryable)
	return ok && r.IsRetryable()
}

func TestErrorsAsMatchesHierarchy(t *testing.T) {
	err := ErrorFromStatusCode(404, "card not found", "", nil)

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatal("errors.As did not match *NotFoundError")
	}

	var rejection *ServerRejection
	if !errors.As(err, &rejection) {
		t.Fatal("errors.As did not match *ServerRejection")
	}
	if rejection.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", rejection.StatusCode)
	}

	var base *ClientError
	if !errors.As(err, &base) {
		t.Fatal("errors.As did not match *ClientError")
	}
	if base.Message != "card not found" {
		t.Errorf("Message = %q", base.Message)
	}
}

func TestNetworkErrorMatchesClientError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &NetworkError{ClientError{Message: "request failed", Cause: cause}}

	var base *ClientError
	if !errors.As(err, &base) {
		t.Fatal("errors.As did not match *ClientError")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not unwrap to the cause")
	}
	if !err.IsRetryable() {
		t.Error("network errors must be retryable")
	}
}

func TestClientErrorMessageFormat(t *testing.T) {
	plain := &ClientError{Message: "boom"}
	if plain.Error() != "boom" {
		t.Errorf("Error() = %q", plain.Error())
	}
	wrapped := &ClientError{Message: "boom", Cause: errors.New("inner")}
	if wrapped.Error() != "boom: inner" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}
