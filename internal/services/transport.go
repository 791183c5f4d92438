package services

import (
	"github.com/aquafit-brasil/pixbot-backend/internal/models"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
)

// InboundMessage is one message event delivered by the chat network.
type InboundMessage struct {
	ID       string
	From     string // raw network address, may be an ephemeral alias
	To       string
	Body     string
	FromMe   bool
	IsStatus bool
	PushName string
}

// ChatAddress returns the address of the remote party in this message's chat.
func (m InboundMessage) ChatAddress() string {
	if m.FromMe {
		return m.To
	}
	return m.From
}

// Transport is the chat-channel boundary. Implementations send best-effort:
// a failed send has no retry path, the caller just logs it.
type Transport interface {
	// SendText delivers text to a chat address and returns the provider
	// message id when available.
	SendText(chatID, text string) (string, error)

	// ResolveChatID validates a digits-only phone number with the provider
	// and returns the canonical chat address for it.
	ResolveChatID(phone string) (string, error)

	// RecentMessages returns up to limit recent messages in a chat, oldest
	// first.
	RecentMessages(chatID string, limit int) ([]storage.ChatMessage, error)

	// SetTyping and ClearTyping toggle the "composing" presence indicator.
	// Providers without presence support treat them as no-ops.
	SetTyping(chatID string) error
	ClearTyping(chatID string) error

	// PairingCode returns the code to scan while pairing is pending, or ""
	// once the channel is authenticated (or never needs pairing).
	PairingCode() string

	// Connected reports whether the channel is ready to send.
	Connected() bool
}

// Responder is the AI text-generation boundary: conversation history plus
// order context in, one assistant turn out. Implementations never fail the
// caller; transient errors degrade to a fallback reply.
type Responder interface {
	Generate(history []models.Message, customer models.CustomerData) string
}
