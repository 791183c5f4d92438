package storage

import (
	"github.com/aquafit-brasil/pixbot-backend/internal/models"
)

// NewMemoryStore creates a Store that never touches disk, for tests and for
// running with USE_MEMORY_STORE=true.
func NewMemoryStore() *StateStore {
	return &StateStore{
		conversations: make(map[string]*models.Conversation),
		lidCache:      make(map[string]string),
		allowed:       make(map[string]bool),
	}
}
