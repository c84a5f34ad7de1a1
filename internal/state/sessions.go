package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// SessionData is the stored mapping value for one (chat, tier) pair.
type SessionData struct {
	// SessionID is the opaque resume handle issued by the assistant.
	SessionID string `json:"session_id"`
	// ProjectDir is the working directory the session was created in.
	ProjectDir string `json:"project_dir,omitempty"`
	// LastUsedAt is when the handle was last written.
	LastUsedAt time.Time `json:"last_used_at"`
}

// SessionStore maps (chatId, tier) to assistant session handles and
// persists the mapping as a JSON file. Reads are concurrent; writes
// are serialized.
type SessionStore struct {
	path     string
	mu       sync.RWMutex
	sessions map[string]SessionData
}

// NewSessionStore creates a session store persisting to the given path
// and loads any existing file. A missing file is not an error.
func NewSessionStore(path string) (*SessionStore, error) {
	s := &SessionStore{
		path:     path,
		sessions: make(map[string]SessionData),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// sessionKey builds the map key for a (chat, tier) pair. An empty tier
// defaults to chat, matching the historical single-tier behavior.
func sessionKey(chatID string, tier models.Tier) string {
	if tier == "" {
		tier = models.TierChat
	}
	return chatID + "|" + string(tier)
}

// Get returns the session data for a (chat, tier) pair.
func (s *SessionStore) Get(chatID string, tier models.Tier) (SessionData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.sessions[sessionKey(chatID, tier)]
	return data, ok
}

// GetSessionID returns just the session handle, "" when absent.
func (s *SessionStore) GetSessionID(chatID string, tier models.Tier) string {
	data, ok := s.Get(chatID, tier)
	if !ok {
		return ""
	}
	return data.SessionID
}

// Set stores a session handle for a (chat, tier) pair, replacing any
// prior handle, and saves the store.
func (s *SessionStore) Set(chatID, sessionID, projectDir string, tier models.Tier) error {
	s.mu.Lock()
	s.sessions[sessionKey(chatID, tier)] = SessionData{
		SessionID:  sessionID,
		ProjectDir: projectDir,
		LastUsedAt: time.Now().UTC(),
	}
	s.mu.Unlock()
	return s.Save()
}

// Clear removes the session for a (chat, tier) pair. An empty tier
// clears all tiers for the chat. Returns the number removed.
func (s *SessionStore) Clear(chatID string, tier models.Tier) (int, error) {
	s.mu.Lock()
	removed := 0
	if tier == "" {
		for _, t := range []models.Tier{models.TierChat, models.TierOrchestrator, models.TierWorker} {
			if _, ok := s.sessions[sessionKey(chatID, t)]; ok {
				delete(s.sessions, sessionKey(chatID, t))
				removed++
			}
		}
	} else {
		if _, ok := s.sessions[sessionKey(chatID, tier)]; ok {
			delete(s.sessions, sessionKey(chatID, tier))
			removed++
		}
	}
	s.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	return removed, s.Save()
}

// ClearAll removes every stored session. Returns the number removed.
func (s *SessionStore) ClearAll() (int, error) {
	s.mu.Lock()
	removed := len(s.sessions)
	s.sessions = make(map[string]SessionData)
	s.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	return removed, s.Save()
}

// SessionEntry pairs a map key with its session data for listing.
type SessionEntry struct {
	ChatID string
	Tier   models.Tier
	Data   SessionData
}

// List returns all stored sessions sorted by chat then tier.
func (s *SessionStore) List() []SessionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]SessionEntry, 0, len(s.sessions))
	for key, data := range s.sessions {
		chatID, tier := splitSessionKey(key)
		entries = append(entries, SessionEntry{ChatID: chatID, Tier: tier, Data: data})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ChatID != entries[j].ChatID {
			return entries[i].ChatID < entries[j].ChatID
		}
		return entries[i].Tier < entries[j].Tier
	})
	return entries
}

// splitSessionKey is the inverse of sessionKey.
func splitSessionKey(key string) (string, models.Tier) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			return key[:i], models.Tier(key[i+1:])
		}
	}
	return key, models.TierChat
}

// Save writes the store to its JSON file, creating parent directories.
func (s *SessionStore) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write sessions file: %w", err)
	}
	return nil
}

// Load replaces the in-memory map with the file's contents. A missing
// file leaves the store empty.
func (s *SessionStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read sessions file: %w", err)
	}

	sessions := make(map[string]SessionData)
	if err := json.Unmarshal(data, &sessions); err != nil {
		return fmt.Errorf("unmarshal sessions: %w", err)
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()
	return nil
}
