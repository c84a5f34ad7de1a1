package assistant

import (
	"fmt"
	"strings"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// Friendly texts substituted for unusable assistant payloads.
const (
	maxTurnsMessage    = "Hit the maximum number of turns before finishing. The task may need to be split up."
	unparseableMessage = "Could not parse the assistant response."
)

// resultFromPayload normalizes a parsed payload into a Result. Arrays
// are searched for their type="result" element; failing that, all text
// fields are joined.
func resultFromPayload(payload any) *Result {
	switch p := payload.(type) {
	case []any:
		for _, item := range p {
			if m, ok := item.(map[string]any); ok {
				if typ, _ := getString(m, "type"); typ == "result" {
					return resultFromPayload(m)
				}
			}
		}
		var parts []string
		for _, item := range p {
			if m, ok := item.(map[string]any); ok {
				if text, ok := getString(m, "text"); ok && text != "" {
					parts = append(parts, text)
				}
			}
		}
		return &Result{Text: strings.Join(parts, "\n")}
	case map[string]any:
		return resultFromObject(p)
	default:
		return &Result{Text: unparseableMessage}
	}
}

// resultFromObject extracts the result fields from one payload object.
// The assistant emits both snake_case and lowercase-fused key forms, so
// every lookup accepts both.
func resultFromObject(m map[string]any) *Result {
	res := &Result{Raw: m}

	res.SessionID, _ = getString(m, "session_id", "sessionid")
	res.CostUSD, _ = getFloat(m, "total_cost_usd", "totalcostusd", "cost_usd")
	if ms, ok := getFloat(m, "duration_ms", "durationms"); ok {
		res.DurationMs = int64(ms)
	}
	if ms, ok := getFloat(m, "duration_api_ms", "durationapims"); ok {
		res.DurationAPIMs = int64(ms)
	}
	if n, ok := getFloat(m, "num_turns", "numturns"); ok {
		res.NumTurns = int(n)
	}
	res.StopReason, _ = getString(m, "stop_reason", "stopreason")
	res.IsError, _ = getBool(m, "is_error", "iserror")
	res.ModelUsage = extractModelUsage(m)
	res.Subtype, _ = getString(m, "subtype")

	// Error subtypes replace the text with a friendly message.
	if res.Subtype == "error_max_turns" {
		res.Text = maxTurnsMessage
		res.IsError = true
		return res
	}
	if strings.HasPrefix(res.Subtype, "error") {
		detail, ok := extractText(m)
		if !ok || detail == "" {
			detail, _ = getString(m, "error")
		}
		if detail == "" {
			detail = res.Subtype
		}
		res.Text = fmt.Sprintf("The assistant reported an error (%s): %s", res.Subtype, detail)
		res.IsError = true
		return res
	}

	if text, ok := extractText(m); ok {
		res.Text = text
		return res
	}

	// Neither result nor content present; keep the payload's error flag.
	res.Text = unparseableMessage
	return res
}

// extractText pulls the result text from a payload's result or content
// field. ok is false when neither field is present.
func extractText(m map[string]any) (string, bool) {
	if v, ok := m["result"]; ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	if v, ok := m["content"]; ok {
		switch c := v.(type) {
		case string:
			return c, true
		case []any:
			var parts []string
			for _, item := range c {
				if b, ok := item.(map[string]any); ok {
					if text, ok := getString(b, "text"); ok && text != "" {
						parts = append(parts, text)
					}
				}
			}
			return strings.Join(parts, "\n"), true
		}
	}
	return "", false
}

// extractModelUsage reads the per-model token map, accepting both the
// modelUsage and model_usage spellings.
func extractModelUsage(m map[string]any) map[string]models.ModelTokens {
	raw, ok := m["modelUsage"].(map[string]any)
	if !ok {
		raw, ok = m["model_usage"].(map[string]any)
	}
	if !ok || len(raw) == 0 {
		return nil
	}

	usage := make(map[string]models.ModelTokens, len(raw))
	for model, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		var mt models.ModelTokens
		if n, ok := getFloat(entry, "inputTokens", "input_tokens"); ok {
			mt.InputTokens = int64(n)
		}
		if n, ok := getFloat(entry, "outputTokens", "output_tokens"); ok {
			mt.OutputTokens = int64(n)
		}
		if n, ok := getFloat(entry, "cacheReadInputTokens", "cache_read_input_tokens"); ok {
			mt.CacheReadInputTokens = int64(n)
		}
		if n, ok := getFloat(entry, "cacheCreationInputTokens", "cache_creation_input_tokens"); ok {
			mt.CacheCreationInputTokens = int64(n)
		}
		usage[model] = mt
	}
	return usage
}

// getString returns the first string value present among the keys.
func getString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// getFloat returns the first numeric value present among the keys.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// getBool returns the first boolean value present among the keys.
func getBool(m map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if b, ok := v.(bool); ok {
				return b, true
			}
		}
	}
	return false, false
}
