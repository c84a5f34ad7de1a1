package assistant

import (
	"encoding/json"
	"strings"
)

// ParsePayload extracts a JSON payload from assistant output. Four
// strategies are tried in order: the whole trimmed text; the text with
// one markdown fence stripped; the outermost brace-matched object
// containing a "type" key; the largest terminal object found by
// scanning brace depth backward from the last closing brace.
func ParsePayload(text string) (any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if payload, ok := parseWhole(trimmed); ok {
		return payload, true
	}
	if payload, ok := parseFenced(trimmed); ok {
		return payload, true
	}
	if payload, ok := parseTypedObject(trimmed); ok {
		return payload, true
	}
	if payload, ok := parseTerminalObject(trimmed); ok {
		return payload, true
	}
	return nil, false
}

// parseWhole parses the entire text as a JSON object or array.
func parseWhole(s string) (any, bool) {
	var payload any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, false
	}
	switch payload.(type) {
	case map[string]any, []any:
		return payload, true
	default:
		return nil, false
	}
}

// parseFenced strips a single markdown code fence and reparses.
func parseFenced(s string) (any, bool) {
	if !strings.HasPrefix(s, "```") {
		return nil, false
	}
	body := strings.TrimPrefix(s, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return parseWhole(strings.TrimSpace(body))
}

// parseTypedObject finds the first brace-matched object whose top level
// carries a "type" key. Matching starts from the leftmost opening brace
// so outer objects win over nested ones.
func parseTypedObject(s string) (any, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		end := matchBrace(s, start)
		if end < 0 {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(s[start:end+1]), &payload); err != nil {
			continue
		}
		if _, ok := payload["type"]; ok {
			return payload, true
		}
	}
	return nil, false
}

// parseTerminalObject looks for the largest JSON object ending at the
// text's last closing brace.
func parseTerminalObject(s string) (any, bool) {
	end := strings.LastIndexByte(s, '}')
	if end < 0 {
		return nil, false
	}

	var starts []int
	depth := 0
	for i := end; i >= 0; i-- {
		switch s[i] {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				starts = append(starts, i)
			}
		}
	}

	// Widest balanced span first, then narrower tails.
	for i := len(starts) - 1; i >= 0; i-- {
		var payload map[string]any
		if err := json.Unmarshal([]byte(s[starts[i]:end+1]), &payload); err == nil {
			return payload, true
		}
	}
	return nil, false
}

// matchBrace returns the index of the brace closing the object opened
// at start, or -1. Braces inside string literals are ignored.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return -1
}
