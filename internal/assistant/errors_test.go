package assistant

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsSessionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"session marker", errors.New("No conversation found with session ID abc"), true},
		{"resume marker", errors.New("cannot resume: handle expired"), true},
		{"not found marker", errors.New("conversation not found"), true},
		{"invalid marker", errors.New("Invalid session handle"), true},
		{"unrelated failure", errors.New("disk quota exceeded"), false},
		{"cancellation never retries", fmt.Errorf("call: %w", ErrCancelled), false},
		{"timeout never retries", fmt.Errorf("call: %w", ErrTimeout), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSessionError(tt.err); got != tt.want {
				t.Errorf("isSessionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRateLimitText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Rate Limit exceeded", true},
		{"HTTP 429 Too Many Requests", true},
		{"connection refused", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isRateLimitText(tt.text); got != tt.want {
			t.Errorf("isRateLimitText(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
