package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// MemoryStore keeps the per-chat durable notes surfaced to chat calls.
type MemoryStore struct {
	db *DB
}

// NewMemoryStore creates a memory store backed by the state database.
func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

// Add stores one note for a chat. The text is trimmed; an empty text
// after trimming is rejected.
func (s *MemoryStore) Add(chatID, text string, source models.NoteSource) (*models.MemoryNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("memory note text is empty")
	}
	if !source.Valid() {
		source = models.NoteSourceAuto
	}

	note := &models.MemoryNote{
		ID:        uuid.New().String()[:8],
		ChatID:    chatID,
		Text:      text,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO memory_notes (id, chat_id, text, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID, note.ChatID, note.Text, string(note.Source), formatTime(note.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert memory note: %w", err)
	}

	return note, nil
}

// Notes returns a chat's notes in insertion order.
func (s *MemoryStore) Notes(chatID string) ([]*models.MemoryNote, error) {
	rows, err := s.db.Query(`
		SELECT id, chat_id, text, source, created_at
		FROM memory_notes
		WHERE chat_id = ?
		ORDER BY created_at, id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("query memory notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.MemoryNote
	for rows.Next() {
		var note models.MemoryNote
		var source, createdAt string
		if err := rows.Scan(&note.ID, &note.ChatID, &note.Text, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory note: %w", err)
		}
		note.Source = models.NoteSource(source)
		if t, err := parseTime(createdAt); err == nil {
			note.CreatedAt = t
		}
		notes = append(notes, &note)
	}
	return notes, rows.Err()
}

// Clear removes all notes for a chat. Returns the number removed.
func (s *MemoryStore) Clear(chatID string) (int64, error) {
	result, err := s.db.Exec("DELETE FROM memory_notes WHERE chat_id = ?", chatID)
	if err != nil {
		return 0, fmt.Errorf("clear memory notes: %w", err)
	}
	return result.RowsAffected()
}

// ContextBlock renders a chat's notes as the bracketed section that is
// prepended to chat prompts. Returns "" when the chat has no notes.
func (s *MemoryStore) ContextBlock(chatID string) (string, error) {
	notes, err := s.Notes(chatID)
	if err != nil {
		return "", err
	}
	if len(notes) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("[MEMORY CONTEXT]\n")
	for _, note := range notes {
		b.WriteString("- ")
		b.WriteString(note.Text)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
