package assistant

import (
	"strings"
	"testing"
)

func TestResultFromPayload_DualKeyCasing(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
	}{
		{
			name: "snake_case keys",
			payload: map[string]any{
				"result": "done", "session_id": "s1", "total_cost_usd": 0.25,
				"duration_ms": float64(1200), "num_turns": float64(3), "is_error": false,
			},
		},
		{
			name: "lowercase-fused keys",
			payload: map[string]any{
				"result": "done", "sessionid": "s1", "totalcostusd": 0.25,
				"durationms": float64(1200), "numturns": float64(3), "iserror": false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resultFromPayload(tt.payload)
			if res.Text != "done" {
				t.Errorf("Text = %q, want done", res.Text)
			}
			if res.SessionID != "s1" {
				t.Errorf("SessionID = %q, want s1", res.SessionID)
			}
			if res.CostUSD != 0.25 {
				t.Errorf("CostUSD = %f, want 0.25", res.CostUSD)
			}
			if res.DurationMs != 1200 {
				t.Errorf("DurationMs = %d, want 1200", res.DurationMs)
			}
			if res.NumTurns != 3 {
				t.Errorf("NumTurns = %d, want 3", res.NumTurns)
			}
			if res.IsError {
				t.Error("IsError = true, want false")
			}
		})
	}
}

func TestResultFromPayload_ArrayLocatesResultElement(t *testing.T) {
	payload := []any{
		map[string]any{"type": "system", "text": "starting"},
		map[string]any{"type": "result", "result": "the answer", "total_cost_usd": 0.10},
	}

	res := resultFromPayload(payload)
	if res.Text != "the answer" {
		t.Errorf("Text = %q, want the answer", res.Text)
	}
	if res.CostUSD != 0.10 {
		t.Errorf("CostUSD = %f, want 0.10", res.CostUSD)
	}
}

func TestResultFromPayload_ArrayWithoutResultJoinsText(t *testing.T) {
	payload := []any{
		map[string]any{"type": "text", "text": "first"},
		map[string]any{"type": "text", "text": "second"},
	}

	res := resultFromPayload(payload)
	if res.Text != "first\nsecond" {
		t.Errorf("Text = %q, want joined text", res.Text)
	}
}

func TestResultFromPayload_MaxTurnsSubtype(t *testing.T) {
	res := resultFromPayload(map[string]any{
		"subtype": "error_max_turns", "result": "partial work", "total_cost_usd": 0.40,
	})
	if !res.IsError {
		t.Error("IsError = false, want true")
	}
	if res.Text != maxTurnsMessage {
		t.Errorf("Text = %q, want the max-turns message", res.Text)
	}
	if res.CostUSD != 0.40 {
		t.Errorf("cost should still be recorded, got %f", res.CostUSD)
	}
}

func TestResultFromPayload_OtherErrorSubtype(t *testing.T) {
	res := resultFromPayload(map[string]any{
		"subtype": "error_during_execution", "result": "disk full",
	})
	if !res.IsError {
		t.Error("IsError = false, want true")
	}
	if !strings.Contains(res.Text, "error_during_execution") {
		t.Errorf("Text should name the subtype: %q", res.Text)
	}
	if !strings.Contains(res.Text, "disk full") {
		t.Errorf("Text should carry the detail: %q", res.Text)
	}
}

func TestResultFromPayload_ContentBlocks(t *testing.T) {
	res := resultFromPayload(map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": "part one"},
			map[string]any{"type": "text", "text": "part two"},
		},
	})
	if res.Text != "part one\npart two" {
		t.Errorf("Text = %q, want joined content blocks", res.Text)
	}
}

func TestResultFromPayload_NeitherResultNorContent(t *testing.T) {
	res := resultFromPayload(map[string]any{"session_id": "s1", "is_error": true})
	if res.Text != unparseableMessage {
		t.Errorf("Text = %q, want the unparseable message", res.Text)
	}
	if !res.IsError {
		t.Error("original error flag should be preserved")
	}
}

func TestResultFromPayload_ModelUsage(t *testing.T) {
	res := resultFromPayload(map[string]any{
		"result": "ok",
		"modelUsage": map[string]any{
			"claude-sonnet": map[string]any{
				"inputTokens":              float64(100),
				"outputTokens":             float64(50),
				"cacheReadInputTokens":     float64(10),
				"cacheCreationInputTokens": float64(5),
			},
		},
	})

	usage, ok := res.ModelUsage["claude-sonnet"]
	if !ok {
		t.Fatal("expected usage for claude-sonnet")
	}
	if usage.InputTokens != 100 || usage.OutputTokens != 50 {
		t.Errorf("tokens = %+v", usage)
	}
	if usage.CacheReadInputTokens != 10 || usage.CacheCreationInputTokens != 5 {
		t.Errorf("cache tokens = %+v", usage)
	}
}
