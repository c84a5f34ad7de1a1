package orchestrator

import "strings"

// transientPatterns are the case-insensitive substrings that mark a
// worker failure as retryable.
var transientPatterns = []string{
	"rate limit",
	"429",
	"timed out",
	"timeout",
	"ECONNRESET",
	"ECONNREFUSED",
	"socket hang up",
	"network error",
	"overloaded",
	"503",
	"502",
}

// IsTransientText reports whether a worker result text matches a
// transient-error pattern and so earns the single automatic retry.
func IsTransientText(text string) bool {
	lower := strings.ToLower(text)
	for _, pattern := range transientPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
