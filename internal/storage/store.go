package storage

import (
	"github.com/aquafit-brasil/pixbot-backend/internal/models"
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go).
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance.
func GetStore() Store {
	return storeInstance
}

// Counts is a point-in-time summary of the state store.
type Counts struct {
	Conversations int `json:"conversations"`
	Aliases       int `json:"aliases"`
	Allowed       int `json:"allowed"`
}

// Store is the durable state boundary: conversation records, the alias cache
// and the allow-list, persisted as one document after every mutation. Reads
// return copies; all mutation goes through the interface so persistence stays
// attached to it.
type Store interface {
	// Conversation operations
	EnsureConversation(key string) models.Conversation
	GetConversation(key string) (models.Conversation, bool)
	ResetConversation(key, chatID string, customer models.CustomerData)
	AppendMessage(key string, msg models.Message)
	History(key string) []models.Message

	// Alias cache operations
	CachedAlias(rawID string) (string, bool)
	CacheAlias(rawID, key string)

	// Allow-list operations
	Allow(key string)
	IsAllowed(key string) bool

	// AllowedLastAssistant maps each allow-listed key to the text of its most
	// recent assistant turn, for alias resolution.
	AllowedLastAssistant() map[string]string

	Counts() Counts
}
