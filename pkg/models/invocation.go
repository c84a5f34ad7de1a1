package models

import "time"

// ModelTokens aggregates token counts for one model within a call.
type ModelTokens struct {
	// InputTokens is the count of prompt tokens.
	InputTokens int64 `json:"input_tokens"`
	// OutputTokens is the count of completion tokens.
	OutputTokens int64 `json:"output_tokens"`
	// CacheReadInputTokens is the count of tokens served from cache.
	CacheReadInputTokens int64 `json:"cache_read_input_tokens"`
	// CacheCreationInputTokens is the count of tokens written to cache.
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

// InvocationRecord is one append-only row of the invocation log. Every
// assistant call emits exactly one record.
type InvocationRecord struct {
	// Timestamp is when the call finished.
	Timestamp time.Time `json:"timestamp"`
	// ChatID is the chat the call served.
	ChatID string `json:"chat_id"`
	// Tier is the role the call ran under.
	Tier Tier `json:"tier"`
	// DurationMs is wall-clock duration in milliseconds.
	DurationMs int64 `json:"duration_ms"`
	// DurationAPIMs is the assistant-reported API time in milliseconds.
	DurationAPIMs int64 `json:"duration_api_ms"`
	// CostUSD is the assistant-reported cost, zero when unreported.
	CostUSD float64 `json:"cost_usd"`
	// NumTurns is the number of assistant turns consumed.
	NumTurns int `json:"num_turns"`
	// StopReason is the assistant-reported stop reason, if any.
	StopReason string `json:"stop_reason,omitempty"`
	// IsError is true when the call failed.
	IsError bool `json:"is_error"`
	// ModelUsage maps model name to its aggregated token counts.
	ModelUsage map[string]ModelTokens `json:"model_usage,omitempty"`
}
