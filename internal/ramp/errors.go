package ramp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrPageLimit            = errors.New("too many pages, narrow the filters")
	ErrNoCredentials        = errors.New("set RAMP_CLIENT_ID and RAMP_CLIENT_SECRET, or RAMP_ACCESS_TOKEN")
	ErrAmbiguousCredentials = errors.New("set either RAMP_CLIENT_ID/RAMP_CLIENT_SECRET or RAMP_ACCESS_TOKEN, not both")
	ErrUnknownEnv           = errors.New("unknown Ramp environment")
)

// maxBody limits how much of an error response is kept.
const maxBody = 4 << 10

// AuthError is a 401 or 403 from Ramp. It is never retried.
type AuthError struct {
	Status int
	URL    string
	Body   string
}

func (e *AuthError) Error() string {
	if e.Status == http.StatusForbidden {
		return "access forbidden: the token does not have the scopes required for this operation"
	}
	return "authentication failed: check the access token or client credentials"
}

// RateLimitError is a 429 that outlived the retry budget.
type RateLimitError struct {
	URL        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by Ramp (retry after %s)", e.RetryAfter)
}

// TransientError is a network failure or a recoverable server status.
type TransientError struct {
	Status int // 0 for network errors
	URL    string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	return fmt.Sprintf("server error %d from Ramp", e.Status)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ClientError is any other non-2xx response; Body holds the API's message.
type ClientError struct {
	Status int
	URL    string
	Body   string
}

func (e *ClientError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("request rejected by Ramp with status %d", e.Status)
	}
	return fmt.Sprintf("request rejected by Ramp with status %d: %s", e.Status, body)
}

// isRecoverable reports whether a status is worth retrying.
func isRecoverable(code int) bool {
	return (code >= http.StatusInternalServerError && code <= 599 && code != http.StatusNotImplemented) ||
		code == http.StatusRequestTimeout
}

// statusError maps a non-2xx response to the error taxonomy.
func statusError(code int, url string, body []byte, retryAfter time.Duration) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{Status: code, URL: url, Body: string(body)}
	case code == http.StatusTooManyRequests:
		return &RateLimitError{URL: url, RetryAfter: retryAfter}
	case isRecoverable(code):
		return &TransientError{Status: code, URL: url, Err: errors.New(http.StatusText(code))}
	default:
		return &ClientError{Status: code, URL: url, Body: string(body)}
	}
}
