package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aquafit-brasil/pixbot-backend/internal/services"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
)

// WhatsAppHandler feeds inbound chat messages through identity resolution
// into the aggregator. Unidentified or disallowed senders are dropped
// silently; the webhook is always acknowledged.
type WhatsAppHandler struct {
	resolver   *services.ContactResolver
	aggregator *services.Aggregator
	chatLog    *storage.ChatLog
}

func NewWhatsAppHandler(resolver *services.ContactResolver, aggregator *services.Aggregator, chatLog *storage.ChatLog) *WhatsAppHandler {
	return &WhatsAppHandler{
		resolver:   resolver,
		aggregator: aggregator,
		chatLog:    chatLog,
	}
}

// TwilioWebhookPayload is the inbound message form Twilio posts.
type TwilioWebhookPayload struct {
	MessageSid  string `form:"MessageSid"`
	AccountSid  string `form:"AccountSid"`
	From        string `form:"From"` // whatsapp:+5511999998888
	To          string `form:"To"`
	Body        string `form:"Body"`
	ProfileName string `form:"ProfileName"`
	SmsStatus   string `form:"SmsStatus"`
}

// HandleWebhook processes one inbound WhatsApp message.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	msg := services.InboundMessage{
		ID:       payload.MessageSid,
		From:     strings.TrimPrefix(payload.From, "whatsapp:"),
		To:       strings.TrimPrefix(payload.To, "whatsapp:"),
		Body:     payload.Body,
		PushName: payload.ProfileName,
		IsStatus: payload.SmsStatus != "" && payload.SmsStatus != "received",
	}

	h.process(msg)
	return c.SendStatus(fiber.StatusOK)
}

// process runs the shared inbound pipeline: record, resolve, aggregate.
func (h *WhatsAppHandler) process(msg services.InboundMessage) {
	if h.chatLog != nil {
		h.chatLog.Record(storage.ChatMessage{
			ID:       msg.ID,
			ChatID:   msg.ChatAddress(),
			FromMe:   msg.FromMe,
			Text:     msg.Body,
			PushName: msg.PushName,
		})
	}
	if msg.FromMe || msg.IsStatus || msg.Body == "" {
		return
	}

	log.Printf("📱 WhatsApp message from %s: %s", msg.From, msg.Body)

	key := h.resolver.Resolve(msg)
	if key == "" {
		log.Printf("🛑 Could not resolve sender %s, dropping message", msg.From)
		return
	}
	h.aggregator.Ingest(key, msg.ChatAddress(), msg.Body)
}

// TestWebhookPayload lets development poke the pipeline without Twilio.
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook processes a simulated inbound message (development only).
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)
	h.process(services.InboundMessage{
		From: payload.From,
		Body: payload.Message,
	})
	return c.JSON(fiber.Map{"status": "queued"})
}
