package storage

import (
	"encoding/json"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
)

// stateDocument is the single persisted file: everything the bot must survive
// a restart with, rewritten wholesale on every mutation.
type stateDocument struct {
	Conversations map[string]*models.Conversation `json:"conversations"`
	LidCache      map[string]string               `json:"lid_cache"`
	Allowed       []string                        `json:"allowed"`
}

// StateStore is the Store implementation. With a path it flushes the whole
// document to disk after every mutation; with an empty path it is purely
// in-memory (see NewMemoryStore). Persist failures are logged and swallowed:
// the in-memory state stays authoritative for the life of the process.
type StateStore struct {
	mu            sync.RWMutex
	path          string
	conversations map[string]*models.Conversation
	lidCache      map[string]string
	allowed       map[string]bool
}

// NewFileStore loads state from path, tolerating a missing or corrupt file.
func NewFileStore(path string) *StateStore {
	s := &StateStore{
		path:          path,
		conversations: make(map[string]*models.Conversation),
		lidCache:      make(map[string]string),
		allowed:       make(map[string]bool),
	}
	s.load()
	log.Printf("💾 State loaded: %d conversations | %d aliases | %d allowed",
		len(s.conversations), len(s.lidCache), len(s.allowed))
	return s
}

func (s *StateStore) load() {
	if s.path == "" {
		return
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️  Could not read state file %s: %v (starting empty)", s.path, err)
		}
		return
	}
	var doc stateDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Printf("⚠️  Corrupt state file %s: %v (starting empty)", s.path, err)
		return
	}
	for key, conv := range doc.Conversations {
		if conv != nil {
			s.conversations[key] = conv
		}
	}
	for rawID, key := range doc.LidCache {
		s.lidCache[rawID] = key
	}
	for _, key := range doc.Allowed {
		s.allowed[key] = true
	}
}

// persistLocked rewrites the state file. Callers hold at least a read lock.
func (s *StateStore) persistLocked() {
	if s.path == "" {
		return
	}
	doc := stateDocument{
		Conversations: s.conversations,
		LidCache:      s.lidCache,
		Allowed:       make([]string, 0, len(s.allowed)),
	}
	for key := range s.allowed {
		doc.Allowed = append(doc.Allowed, key)
	}
	sort.Strings(doc.Allowed)

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Printf("⚠️  Could not encode state: %v", err)
		return
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		log.Printf("⚠️  Could not persist state: %v", err)
	}
}

func copyConversation(conv *models.Conversation) models.Conversation {
	out := *conv
	out.History = append([]models.Message(nil), conv.History...)
	return out
}

// EnsureConversation returns the record for key, creating and persisting an
// empty one on first contact. Idempotent.
func (s *StateStore) EnsureConversation(key string) models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[key]
	if !ok {
		conv = &models.Conversation{ChatID: key}
		s.conversations[key] = conv
		s.persistLocked()
	}
	return copyConversation(conv)
}

func (s *StateStore) GetConversation(key string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[key]
	if !ok {
		return models.Conversation{}, false
	}
	return copyConversation(conv), true
}

// ResetConversation starts a fresh recovery conversation: prior history is
// discarded and the order context replaced.
func (s *StateStore) ResetConversation(key, chatID string, customer models.CustomerData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[key] = &models.Conversation{
		ChatID:   chatID,
		Customer: customer,
	}
	s.persistLocked()
}

// AppendMessage appends one turn to the history. History entries are only
// ever appended, never edited or reordered.
func (s *StateStore) AppendMessage(key string, msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[key]
	if !ok {
		conv = &models.Conversation{ChatID: key}
		s.conversations[key] = conv
	}
	conv.History = append(conv.History, msg)
	s.persistLocked()
}

func (s *StateStore) History(key string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[key]
	if !ok {
		return nil
	}
	return append([]models.Message(nil), conv.History...)
}

func (s *StateStore) CachedAlias(rawID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.lidCache[rawID]
	return key, ok
}

// CacheAlias maps a raw network address to a canonical key, last-write-wins.
func (s *StateStore) CacheAlias(rawID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lidCache[rawID] = key
	s.persistLocked()
}

func (s *StateStore) Allow(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allowed[key] {
		s.allowed[key] = true
		s.persistLocked()
	}
}

func (s *StateStore) IsAllowed(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.allowed[key]
}

func (s *StateStore) AllowedLastAssistant() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.allowed))
	for key := range s.allowed {
		if conv, ok := s.conversations[key]; ok {
			if text := conv.LastAssistantText(); text != "" {
				out[key] = text
			}
		}
	}
	return out
}

func (s *StateStore) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Counts{
		Conversations: len(s.conversations),
		Aliases:       len(s.lidCache),
		Allowed:       len(s.allowed),
	}
}
