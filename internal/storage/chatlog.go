package storage

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// maxChatMessages caps the rolling window kept per chat.
const maxChatMessages = 50

// ChatMessage is one message observed on the chat network, inbound or sent by
// the bot itself.
type ChatMessage struct {
	ID       string `json:"id"`
	ChatID   string `json:"chat_id"`
	FromMe   bool   `json:"from_me"`
	Text     string `json:"text"`
	PushName string `json:"push_name,omitempty"`
}

// ChatLog keeps a rolling window of recent messages per chat. It backs the
// alias resolver's "what did we just say in this chat" lookup, since the
// transport itself offers no cheap history API. Flushed to its own file on a
// timer rather than per write; losing a few seconds of it is harmless.
type ChatLog struct {
	mu    sync.RWMutex
	path  string
	chats map[string][]ChatMessage
}

// NewChatLog loads the log from path. Missing or corrupt files start empty.
func NewChatLog(path string) *ChatLog {
	l := &ChatLog{
		path:  path,
		chats: make(map[string][]ChatMessage),
	}
	if path == "" {
		return l
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return l
	}
	if err := json.Unmarshal(raw, &l.chats); err != nil {
		log.Printf("⚠️  Corrupt chat log %s: %v (starting empty)", path, err)
		l.chats = make(map[string][]ChatMessage)
	}
	return l
}

// Record appends a message to its chat window, deduplicating by message ID and
// dropping the oldest entry past the cap.
func (l *ChatLog) Record(msg ChatMessage) {
	if msg.ChatID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.chats[msg.ChatID]
	if msg.ID != "" {
		for _, existing := range window {
			if existing.ID == msg.ID {
				return
			}
		}
	}
	window = append(window, msg)
	if len(window) > maxChatMessages {
		window = window[len(window)-maxChatMessages:]
	}
	l.chats[msg.ChatID] = window
}

// Recent returns up to limit most recent messages for a chat, oldest first.
func (l *ChatLog) Recent(chatID string, limit int) []ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	window := l.chats[chatID]
	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	return append([]ChatMessage(nil), window...)
}

// Flush writes the log to disk.
func (l *ChatLog) Flush() error {
	if l.path == "" {
		return nil
	}
	l.mu.RLock()
	raw, err := json.Marshal(l.chats)
	l.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, raw, 0o644)
}
