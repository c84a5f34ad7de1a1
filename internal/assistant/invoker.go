// Package assistant provides the invocation layer for the external AI
// coding assistant. Calls can run through the assistant CLI as a
// supervised subprocess or directly against the Anthropic API.
package assistant

import (
	"context"
	"time"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// ActivityFunc is called on every output chunk. It must not block.
type ActivityFunc func()

// OutputFunc receives each raw stdout/stderr chunk. It must not block.
type OutputFunc func(chunk string)

// InvocationFunc receives one record per assistant call made.
type InvocationFunc func(rec models.InvocationRecord)

// CallOptions describes a single assistant call.
type CallOptions struct {
	// Prompt is the user-visible instruction. Required.
	Prompt string
	// SystemPrompt replaces the assistant's default system prompt when set.
	SystemPrompt string
	// Model is the model identifier; empty uses the assistant's default.
	Model string
	// MaxTurns caps assistant turns for this call.
	MaxTurns int
	// Tools is the comma-separated allowed-tools list. nil omits the
	// flag entirely; pointing at an empty string disables all tools.
	Tools *string
	// SessionID resumes a prior conversation when set.
	SessionID string
	// WorkDir is the working directory for the call.
	WorkDir string
	// Timeout bounds the call. Zero means unlimited.
	Timeout time.Duration

	// ChatID and Tier tag the invocation record for this call.
	ChatID string
	Tier   models.Tier

	// OnActivity fires on every output chunk.
	OnActivity ActivityFunc
	// OnOutput receives every output chunk.
	OnOutput OutputFunc
	// OnInvocation receives the call's invocation record.
	OnInvocation InvocationFunc
}

// NoTools returns the Tools value that disables all assistant tools.
func NoTools() *string {
	s := ""
	return &s
}

// Result is the normalized outcome of one assistant call.
type Result struct {
	// Text is the assistant's result text.
	Text string
	// IsError is true when the assistant reported a failure.
	IsError bool
	// SessionID is the handle for resuming this conversation, if issued.
	SessionID string
	// CostUSD is the reported cost, zero when unreported.
	CostUSD float64
	// DurationMs is wall-clock duration in milliseconds.
	DurationMs int64
	// DurationAPIMs is the reported API time in milliseconds.
	DurationAPIMs int64
	// NumTurns is the number of turns consumed.
	NumTurns int
	// StopReason is the reported stop reason, if any.
	StopReason string
	// Subtype carries the assistant's result subtype, such as
	// error_max_turns, when one was present.
	Subtype string
	// ModelUsage maps model name to aggregated token counts.
	ModelUsage map[string]models.ModelTokens
	// Raw is the parsed payload the result was extracted from, nil when
	// stdout carried no parseable JSON.
	Raw map[string]any
}

// Record converts the result into an invocation record for the log.
func (r *Result) Record(chatID string, tier models.Tier) models.InvocationRecord {
	return models.InvocationRecord{
		Timestamp:     time.Now().UTC(),
		ChatID:        chatID,
		Tier:          tier,
		DurationMs:    r.DurationMs,
		DurationAPIMs: r.DurationAPIMs,
		CostUSD:       r.CostUSD,
		NumTurns:      r.NumTurns,
		StopReason:    r.StopReason,
		IsError:       r.IsError,
		ModelUsage:    r.ModelUsage,
	}
}

// Invoker runs assistant calls. Implementations must return all
// assistant-level failures as Result values; errors are reserved for
// cancellation, timeouts, and calls that produced no output at all.
type Invoker interface {
	Invoke(ctx context.Context, opts CallOptions) (*Result, error)
}
