package assistant

import (
	"errors"
	"strings"
)

var (
	// ErrCancelled marks a call aborted by its cancellation token.
	ErrCancelled = errors.New("cancelled")
	// ErrTimeout marks a call that exceeded its own timeout.
	ErrTimeout = errors.New("timed out")
	// ErrRateLimited marks a call rejected by the assistant's rate limiter.
	ErrRateLimited = errors.New("rate limited")

	// ErrKilledByUser is the cancellation cause for an explicit kill.
	ErrKilledByUser = errors.New("killed by user")
	// ErrStallKilled is the cancellation cause for a silent worker.
	ErrStallKilled = errors.New("timed out waiting for output")
)

// sessionErrorMarkers are the substrings that identify a failure caused
// by a stale or unknown session handle.
var sessionErrorMarkers = []string{"session", "resume", "not found", "invalid"}

// isSessionError reports whether a call failure looks like a session
// handle problem worth one retry without the handle. Cancellations and
// timeouts never qualify.
func isSessionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, ErrTimeout) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range sessionErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isRateLimitText reports whether stderr output indicates rate limiting.
func isRateLimitText(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "429")
}
