package services

import (
	"fmt"
	"sync"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
	"github.com/aquafit-brasil/pixbot-backend/internal/utils"
)

type sentMessage struct {
	ChatID string
	Text   string
}

// fakeTransport records sends and serves canned recent-message windows.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []sentMessage
	failSend bool
	recent   map[string][]storage.ChatMessage
	pairing  string
	typing   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{recent: make(map[string][]storage.ChatMessage)}
}

func (f *fakeTransport) SendText(chatID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return "", fmt.Errorf("send failed")
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return fmt.Sprintf("SM%d", len(f.sent)), nil
}

func (f *fakeTransport) ResolveChatID(phone string) (string, error) {
	return utils.DigitsOnly(phone) + "@c.us", nil
}

func (f *fakeTransport) RecentMessages(chatID string, limit int) ([]storage.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	window := f.recent[chatID]
	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	return append([]storage.ChatMessage(nil), window...), nil
}

func (f *fakeTransport) SetTyping(chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeTransport) ClearTyping(chatID string) error { return nil }

func (f *fakeTransport) PairingCode() string { return f.pairing }

func (f *fakeTransport) Connected() bool { return true }

func (f *fakeTransport) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// fakeResponder returns a fixed reply and records what it was asked.
type fakeResponder struct {
	mu        sync.Mutex
	reply     string
	histories [][]models.Message
	customers []models.CustomerData
}

func (f *fakeResponder) Generate(history []models.Message, customer models.CustomerData) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, append([]models.Message(nil), history...))
	f.customers = append(f.customers, customer)
	return f.reply
}

func (f *fakeResponder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.histories)
}
