// Package dropbox provides an HTTP client for the Dropbox v2 API with
// bearer authentication, transport-level retry, and classification of
// the provider's machine-readable error summaries.
package dropbox

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for provider error classification.
// Use errors.Is(err, dropbox.ErrNotFound) to check.
var (
	ErrPathConflict     = errors.New("dropbox: path conflict")
	ErrAccessDenied     = errors.New("dropbox: access denied")
	ErrInvalidToken     = errors.New("dropbox: invalid access token")
	ErrNotFound         = errors.New("dropbox: not found")
	ErrSharedLinkExists = errors.New("dropbox: shared link already exists")
	ErrAPI              = errors.New("dropbox: API error")
)

// APIError wraps a classified sentinel with the HTTP status, the raw
// error_summary, and the optional user-facing message from the provider.
type APIError struct {
	StatusCode  int
	Summary     string
	UserMessage string
	Err         error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	msg := e.Summary
	if e.UserMessage != "" {
		msg = e.UserMessage + " (" + e.Summary + ")"
	}

	return fmt.Sprintf("dropbox: HTTP %d: %s", e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// summaryKinds maps error_summary prefixes to sentinels. Order matters:
// the first matching prefix wins, so more specific prefixes come first.
var summaryKinds = []struct {
	prefix string
	kind   error
}{
	{"path/conflict", ErrPathConflict},
	{"to/conflict", ErrPathConflict},
	{"path/no_write_permission", ErrAccessDenied},
	{"no_permission", ErrAccessDenied},
	{"access_denied", ErrAccessDenied},
	{"email_not_verified", ErrAccessDenied},
	{"invalid_access_token", ErrInvalidToken},
	{"expired_access_token", ErrInvalidToken},
	{"path/not_found", ErrNotFound},
	{"path_lookup/not_found", ErrNotFound},
	{"not_found", ErrNotFound},
	{"shared_link_already_exists", ErrSharedLinkExists},
}

// ClassifyError maps a provider error_summary (e.g. "path/not_found/..")
// to a sentinel error. Unrecognized summaries map to ErrAPI.
func ClassifyError(summary string) error {
	s := strings.TrimSpace(summary)

	for _, k := range summaryKinds {
		if s == k.prefix || strings.HasPrefix(s, k.prefix+"/") {
			return k.kind
		}
	}

	return ErrAPI
}

// isRetryableStatus reports whether the given HTTP status code should be
// retried at the transport level (throttling and server errors).
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
