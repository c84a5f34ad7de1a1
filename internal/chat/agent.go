package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/rumpbot/rumpbot/internal/assistant"
	"github.com/rumpbot/rumpbot/internal/config"
	"github.com/rumpbot/rumpbot/internal/state"
	"github.com/rumpbot/rumpbot/pkg/models"
)

// systemPrompt is the chat persona. It instructs the assistant to hold
// a normal conversation and, when the user wants work done, to emit an
// action block instead of attempting the work itself. Facts worth
// keeping go in a memory block.
const systemPrompt = `You are Rumpbot, a helpful engineering assistant embedded in a chat.

Answer conversational messages directly and concisely.

When the user asks for work to be done on their project (fixing, building,
refactoring, deploying, investigating code), do NOT do the work yourself.
Instead include exactly one action block in your reply:

<RUMPBOT_ACTION>{"type":"work_request","task":"<what to do>","context":"<relevant detail from the conversation>","urgency":"quick|normal"}</RUMPBOT_ACTION>

Use "quick" only for trivial one-step requests.

When you learn a durable fact about the user or their project worth
remembering across conversations, include it once as:

<TIFFBOT_MEMORY>the fact</TIFFBOT_MEMORY>

Keep the visible reply short and friendly.`

// Reply is the outcome of one chat turn.
type Reply struct {
	// Text is what the chat surface should show.
	Text string
	// WorkRequest is non-nil when the message needs orchestration.
	WorkRequest *models.WorkRequest
	// MemoryNote is a new durable note extracted from the reply, if any.
	MemoryNote string
}

// Agent is the chat tier: a thin persona layer over the invoker that
// maintains a chat session per chat and classifies each message.
type Agent struct {
	invoker  assistant.Invoker
	sessions *state.SessionStore
	memory   *state.MemoryStore
	tier     config.TierConfig
	onRecord assistant.InvocationFunc
}

// NewAgent creates the chat agent. onRecord receives one invocation
// record per assistant call and may be nil.
func NewAgent(invoker assistant.Invoker, sessions *state.SessionStore, memory *state.MemoryStore, tier config.TierConfig, onRecord assistant.InvocationFunc) *Agent {
	return &Agent{
		invoker:  invoker,
		sessions: sessions,
		memory:   memory,
		tier:     tier,
		onRecord: onRecord,
	}
}

// HandleMessage runs one chat turn: prepend the chat's memory context,
// call the assistant with the chat session, parse the reply's blocks,
// store any memory note, and roll the session handle forward.
func (a *Agent) HandleMessage(ctx context.Context, chatID, message, workDir string) (*Reply, error) {
	prompt := message
	if a.memory != nil {
		block, err := a.memory.ContextBlock(chatID)
		if err != nil {
			log.Printf("[chat] memory context unavailable for %s: %v", chatID, err)
		} else if block != "" {
			prompt = block + "\n\n" + message
		}
	}

	res, err := a.invoker.Invoke(ctx, assistant.CallOptions{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Model:        a.tier.Model,
		MaxTurns:     a.tier.MaxTurns,
		SessionID:    a.sessions.GetSessionID(chatID, models.TierChat),
		WorkDir:      workDir,
		Timeout:      a.tier.Timeout,
		ChatID:       chatID,
		Tier:         models.TierChat,
		OnInvocation: a.onRecord,
	})
	if err != nil {
		return nil, fmt.Errorf("chat call: %w", err)
	}

	if res.SessionID != "" {
		if err := a.sessions.Set(chatID, res.SessionID, workDir, models.TierChat); err != nil {
			log.Printf("[chat] could not persist session for %s: %v", chatID, err)
		}
	}

	parsed := ParseReply(res.Text)
	if parsed.MemoryNote != "" && a.memory != nil {
		if _, err := a.memory.Add(chatID, parsed.MemoryNote, models.NoteSourceAuto); err != nil {
			log.Printf("[chat] could not store memory note for %s: %v", chatID, err)
		}
	}

	return &Reply{
		Text:        parsed.Text,
		WorkRequest: parsed.WorkRequest,
		MemoryNote:  parsed.MemoryNote,
	}, nil
}
