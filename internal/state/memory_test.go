package state

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rumpbot/rumpbot/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestMemoryStore_AddAndList(t *testing.T) {
	store := NewMemoryStore(newTestDB(t))

	note, err := store.Add("chat1", "  deploys happen on fridays  ", models.NoteSourceAuto)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if note.Text != "deploys happen on fridays" {
		t.Errorf("note text not trimmed: %q", note.Text)
	}
	if note.ID == "" {
		t.Error("note id not assigned")
	}

	notes, err := store.Notes("chat1")
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(notes))
	}
	if notes[0].Source != models.NoteSourceAuto {
		t.Errorf("source = %q, want auto", notes[0].Source)
	}
}

func TestMemoryStore_RejectsEmptyText(t *testing.T) {
	store := NewMemoryStore(newTestDB(t))

	if _, err := store.Add("chat1", "   ", models.NoteSourceManual); err == nil {
		t.Fatal("expected error for whitespace-only note")
	}
}

func TestMemoryStore_NotesArePerChat(t *testing.T) {
	store := NewMemoryStore(newTestDB(t))

	store.Add("chat1", "note one", models.NoteSourceManual)
	store.Add("chat2", "note two", models.NoteSourceManual)

	notes, err := store.Notes("chat1")
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != 1 || notes[0].Text != "note one" {
		t.Errorf("chat1 notes = %+v, want just 'note one'", notes)
	}
}

func TestMemoryStore_ContextBlock(t *testing.T) {
	store := NewMemoryStore(newTestDB(t))

	block, err := store.ContextBlock("chat1")
	if err != nil {
		t.Fatalf("ContextBlock: %v", err)
	}
	if block != "" {
		t.Errorf("empty chat should yield empty block, got %q", block)
	}

	store.Add("chat1", "prefers tabs", models.NoteSourceAuto)
	store.Add("chat1", "staging is at 10.0.0.2", models.NoteSourceManual)

	block, err = store.ContextBlock("chat1")
	if err != nil {
		t.Fatalf("ContextBlock: %v", err)
	}
	if !strings.HasPrefix(block, "[MEMORY CONTEXT]") {
		t.Errorf("block missing header: %q", block)
	}
	if !strings.Contains(block, "- prefers tabs") {
		t.Errorf("block missing first bullet: %q", block)
	}
	if !strings.Contains(block, "- staging is at 10.0.0.2") {
		t.Errorf("block missing second bullet: %q", block)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore(newTestDB(t))

	store.Add("chat1", "a", models.NoteSourceManual)
	store.Add("chat1", "b", models.NoteSourceManual)

	removed, err := store.Clear("chat1")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	notes, _ := store.Notes("chat1")
	if len(notes) != 0 {
		t.Errorf("expected no notes after clear, got %d", len(notes))
	}
}
