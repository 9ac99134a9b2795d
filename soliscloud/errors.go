package soliscloud

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ClockSkewTolerance is the maximum difference between local and server
// time before the server rejects calls with HTTP 408.
const ClockSkewTolerance = 15 * time.Minute

// ConfigError reports invalid credentials or client configuration. It is
// raised before any network activity and is never retryable.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "soliscloud: " + e.Reason
}

// APIError is a non-success vendor envelope: the vendor status code and
// its human-readable message. Whether a retry makes sense depends on the
// code and is left to the caller.
type APIError struct {
	Code string
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("soliscloud api error %s: %s", e.Code, e.Msg)
}

// AccountError is an account-level backend fault reported by the vendor.
// It is not retryable; the account holder has to contact vendor support.
type AccountError struct {
	Code string
	Msg  string
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("soliscloud account fault %s: %s (contact vendor support)", e.Code, e.Msg)
}

// HTTPError is a non-200 response from the API server, surfaced with its
// status unmodified. Status 408 means the local clock is outside the
// server's tolerance.
type HTTPError struct {
	StatusCode int
	LocalTime  time.Time
}

func (e *HTTPError) Error() string {
	if e.ClockSkew() {
		return fmt.Sprintf("soliscloud: local clock differs from server time by more than %s, local time is %s",
			ClockSkewTolerance, e.LocalTime.UTC().Format(http.TimeFormat))
	}
	return fmt.Sprintf("soliscloud: http status %d", e.StatusCode)
}

// ClockSkew reports whether the server rejected the call because of
// clock drift. The caller should resynchronize before retrying.
func (e *HTTPError) ClockSkew() bool {
	return e.StatusCode == http.StatusRequestTimeout
}

// NetworkError wraps a transport failure. Timeout distinguishes an
// exceeded deadline from a connection-level error.
type NetworkError struct {
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("soliscloud: request timed out: %v", e.Err)
	}
	return fmt.Sprintf("soliscloud: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a response body that violates the envelope
// contract.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("soliscloud: %s: %v", e.Msg, e.Err)
	}
	return "soliscloud: " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports an endpoint precondition failure: conflicting
// identifiers, an oversized page, a malformed date. Raised before any
// network activity.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "soliscloud: " + e.Msg
}

// accountFaultMessages lists vendor messages that signal an account-level
// backend fault rather than a problem with the request. Extend the table,
// not the envelope switch.
var accountFaultMessages = map[string]bool{
	"数据异常 请联系管理员": true,
}

// Retryable reports whether the caller may reasonably retry after err.
// The client itself never retries; backoff policy belongs to the caller.
func Retryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.ClockSkew() || httpErr.StatusCode >= 500
	}
	return false
}
