package models

import (
	"errors"
	"strings"
)

// ErrExhausted is returned by Chain when every model in the fallback list
// failed with a retryable error.
var ErrExhausted = errors.New("all models exhausted")

// IsRetryable reports whether an error from a provider call should move the
// caller to the next model in the fallback list: rate limits and transient
// availability problems qualify, everything else (auth, bad request) does not.
// Providers do not share an error type, so this matches on the wire text.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests") ||
		strings.Contains(s, "overloaded") ||
		strings.Contains(s, "503") ||
		// A bare "500" false-positives on request IDs and model names,
		// so require the status phrasing.
		strings.Contains(s, "status 500") ||
		strings.Contains(s, "error 500") ||
		strings.Contains(s, "internal server error") ||
		strings.Contains(s, "server_error") ||
		strings.Contains(s, "unavailable") ||
		strings.Contains(s, "timeout")
}
