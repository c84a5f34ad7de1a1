package models

import "time"

// NoteSource records how a memory note was created.
type NoteSource string

const (
	// NoteSourceAuto marks notes extracted from assistant replies.
	NoteSourceAuto NoteSource = "auto"
	// NoteSourceManual marks notes added by an explicit user command.
	NoteSourceManual NoteSource = "manual"
)

// Valid returns true if the source is a known value.
func (s NoteSource) Valid() bool {
	switch s {
	case NoteSourceAuto, NoteSourceManual:
		return true
	default:
		return false
	}
}

// MemoryNote is a durable per-chat fact surfaced to later chat calls.
type MemoryNote struct {
	// ID is the unique identifier for this note.
	ID string `json:"id"`
	// ChatID is the chat the note belongs to.
	ChatID string `json:"chat_id"`
	// Text is the trimmed, non-empty note body.
	Text string `json:"text"`
	// Source records whether the note was auto-extracted or user-added.
	Source NoteSource `json:"source"`
	// CreatedAt is when the note was stored.
	CreatedAt time.Time `json:"created_at"`
}
