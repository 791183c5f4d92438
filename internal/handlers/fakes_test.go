package handlers

import (
	"sync"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
)

type sentMessage struct {
	chatID string
	text   string
}

// fakeTransport is an in-memory chat channel for handler tests.
type fakeTransport struct {
	mu         sync.Mutex
	sent       []sentMessage
	resolveErr error
	recent     map[string][]storage.ChatMessage
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{recent: make(map[string][]storage.ChatMessage)}
}

func (f *fakeTransport) SendText(chatID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return "msg-id", nil
}

func (f *fakeTransport) ResolveChatID(phone string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return phone + "@c.us", nil
}

func (f *fakeTransport) RecentMessages(chatID string, limit int) ([]storage.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recent[chatID], nil
}

func (f *fakeTransport) SetTyping(chatID string) error   { return nil }
func (f *fakeTransport) ClearTyping(chatID string) error { return nil }
func (f *fakeTransport) PairingCode() string             { return "" }
func (f *fakeTransport) Connected() bool                 { return true }

func (f *fakeTransport) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeResponder returns a canned reply.
type fakeResponder struct {
	reply string
}

func (f *fakeResponder) Generate(history []models.Message, customer models.CustomerData) string {
	return f.reply
}
