package chat

import (
	"strings"
	"testing"

	"github.com/rumpbot/rumpbot/pkg/models"
)

func TestParseReply_NoBlocks(t *testing.T) {
	parsed := ParseReply("Hello! How can I help?")

	if parsed.WorkRequest != nil {
		t.Errorf("WorkRequest = %+v, want nil", parsed.WorkRequest)
	}
	if parsed.MemoryNote != "" {
		t.Errorf("MemoryNote = %q, want empty", parsed.MemoryNote)
	}
	if parsed.Text != "Hello! How can I help?" {
		t.Errorf("Text = %q, want the reply verbatim", parsed.Text)
	}
}

func TestParseReply_ActionBlockRoundTrip(t *testing.T) {
	reply := `On it!
<RUMPBOT_ACTION>{"type":"work_request","task":"fix the build","context":"CI is red","urgency":"quick"}</RUMPBOT_ACTION>
Give me a few minutes.`

	parsed := ParseReply(reply)

	if parsed.WorkRequest == nil {
		t.Fatal("expected a work request")
	}
	if parsed.WorkRequest.Task != "fix the build" {
		t.Errorf("Task = %q", parsed.WorkRequest.Task)
	}
	if parsed.WorkRequest.Context != "CI is red" {
		t.Errorf("Context = %q", parsed.WorkRequest.Context)
	}
	if parsed.WorkRequest.Urgency != models.UrgencyQuick {
		t.Errorf("Urgency = %q", parsed.WorkRequest.Urgency)
	}
	if strings.Contains(parsed.Text, "RUMPBOT_ACTION") {
		t.Errorf("delimiters not stripped: %q", parsed.Text)
	}
	if !strings.Contains(parsed.Text, "On it!") || !strings.Contains(parsed.Text, "Give me a few minutes.") {
		t.Errorf("surrounding text lost: %q", parsed.Text)
	}
}

func TestParseReply_MissingUrgencyDefaultsToNormal(t *testing.T) {
	parsed := ParseReply(`<RUMPBOT_ACTION>{"type":"work_request","task":"do it","context":""}</RUMPBOT_ACTION>ok`)

	if parsed.WorkRequest == nil {
		t.Fatal("expected a work request")
	}
	if parsed.WorkRequest.Urgency != models.UrgencyNormal {
		t.Errorf("Urgency = %q, want normal", parsed.WorkRequest.Urgency)
	}
}

func TestParseReply_InvalidActionBlocks(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"malformed json", `text <RUMPBOT_ACTION>{not json}</RUMPBOT_ACTION> more`},
		{"missing type", `text <RUMPBOT_ACTION>{"task":"x"}</RUMPBOT_ACTION> more`},
		{"empty task", `text <RUMPBOT_ACTION>{"type":"work_request","task":""}</RUMPBOT_ACTION> more`},
		{"wrong type", `text <RUMPBOT_ACTION>{"type":"reminder","task":"x"}</RUMPBOT_ACTION> more`},
		{"unclosed block", `text <RUMPBOT_ACTION>{"type":"work_request","task":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := ParseReply(tt.reply)
			if parsed.WorkRequest != nil {
				t.Errorf("WorkRequest = %+v, want nil", parsed.WorkRequest)
			}
			if parsed.Text == "" {
				t.Error("chat text should still return")
			}
		})
	}
}

func TestParseReply_UnknownActionFieldsIgnored(t *testing.T) {
	parsed := ParseReply(`<RUMPBOT_ACTION>{"type":"work_request","task":"x","priority":9,"labels":["a"]}</RUMPBOT_ACTION>ok`)
	if parsed.WorkRequest == nil {
		t.Fatal("unknown fields should not invalidate the block")
	}
}

func TestParseReply_MemoryBlock(t *testing.T) {
	parsed := ParseReply("Noted!<TIFFBOT_MEMORY>  user deploys from main  </TIFFBOT_MEMORY>")

	if parsed.MemoryNote != "user deploys from main" {
		t.Errorf("MemoryNote = %q, want trimmed payload", parsed.MemoryNote)
	}
	if strings.Contains(parsed.Text, "TIFFBOT_MEMORY") {
		t.Errorf("delimiters not stripped: %q", parsed.Text)
	}
}

func TestParseReply_WhitespaceOnlyMemoryIgnored(t *testing.T) {
	parsed := ParseReply("ok<TIFFBOT_MEMORY>   </TIFFBOT_MEMORY>")
	if parsed.MemoryNote != "" {
		t.Errorf("MemoryNote = %q, want empty", parsed.MemoryNote)
	}
}

func TestParseReply_BothBlocks(t *testing.T) {
	reply := `Sure.<RUMPBOT_ACTION>{"type":"work_request","task":"restart nginx"}</RUMPBOT_ACTION><TIFFBOT_MEMORY>nginx runs on host web-1</TIFFBOT_MEMORY>`

	parsed := ParseReply(reply)
	if parsed.WorkRequest == nil || parsed.WorkRequest.Task != "restart nginx" {
		t.Errorf("WorkRequest = %+v", parsed.WorkRequest)
	}
	if parsed.MemoryNote != "nginx runs on host web-1" {
		t.Errorf("MemoryNote = %q", parsed.MemoryNote)
	}
	if parsed.Text != "Sure." {
		t.Errorf("Text = %q, want Sure.", parsed.Text)
	}
}

func TestParseReply_EmptyAfterStrippingGetsPlaceholder(t *testing.T) {
	parsed := ParseReply(`<RUMPBOT_ACTION>{"type":"work_request","task":"x"}</RUMPBOT_ACTION>`)
	if parsed.Text != placeholderText {
		t.Errorf("Text = %q, want placeholder", parsed.Text)
	}
}
