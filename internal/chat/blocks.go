// Package chat implements the chat tier: it classifies user messages
// as conversational or work-bearing by parsing the assistant's reply
// for delimited action and memory blocks.
package chat

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// Block delimiters emitted by the assistant's chat system prompt. The
// memory tag predates the action tag and is kept for compatibility
// with deployed system prompts.
const (
	actionOpenTag  = "<RUMPBOT_ACTION>"
	actionCloseTag = "</RUMPBOT_ACTION>"
	memoryOpenTag  = "<TIFFBOT_MEMORY>"
	memoryCloseTag = "</TIFFBOT_MEMORY>"
)

// placeholderText substitutes for a reply whose visible text was
// entirely consumed by delimited blocks.
const placeholderText = "Working on it..."

// ParsedReply is the assistant's chat output split into its parts.
type ParsedReply struct {
	// Text is the chat text with all delimited blocks removed. Never
	// empty; a blank remainder is replaced with a placeholder.
	Text string
	// WorkRequest is the parsed action block, nil for chat-only replies.
	WorkRequest *models.WorkRequest
	// MemoryNote is the trimmed memory block payload, "" when absent.
	MemoryNote string
}

// ParseReply extracts the action and memory blocks from an assistant
// reply. Malformed block contents are logged and ignored; the chat
// text always comes back.
func ParseReply(reply string) ParsedReply {
	parsed := ParsedReply{}

	text, actionBody := extractBlock(reply, actionOpenTag, actionCloseTag)
	if actionBody != "" {
		var req models.WorkRequest
		if err := json.Unmarshal([]byte(actionBody), &req); err != nil {
			log.Printf("[chat] ignoring malformed action block: %v", err)
		} else if !req.Valid() {
			log.Printf("[chat] ignoring action block with type=%q task=%q", req.Type, req.Task)
		} else {
			if req.Urgency == "" || !req.Urgency.Valid() {
				req.Urgency = models.UrgencyNormal
			}
			parsed.WorkRequest = &req
		}
	}

	text, memoryBody := extractBlock(text, memoryOpenTag, memoryCloseTag)
	if note := strings.TrimSpace(memoryBody); note != "" {
		parsed.MemoryNote = note
	}

	parsed.Text = strings.TrimSpace(text)
	if parsed.Text == "" {
		parsed.Text = placeholderText
	}
	return parsed
}

// extractBlock removes the first open..close span from the text and
// returns the remainder plus the span's inner content. Text with no
// complete block comes back unchanged.
func extractBlock(text, openTag, closeTag string) (remainder, body string) {
	start := strings.Index(text, openTag)
	if start < 0 {
		return text, ""
	}
	end := strings.Index(text[start+len(openTag):], closeTag)
	if end < 0 {
		return text, ""
	}

	body = text[start+len(openTag) : start+len(openTag)+end]
	remainder = text[:start] + text[start+len(openTag)+end+len(closeTag):]
	return remainder, body
}
