package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
	"github.com/aquafit-brasil/pixbot-backend/internal/services"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
	"github.com/aquafit-brasil/pixbot-backend/internal/utils"
)

// YampiHandler interprets store webhook events and drives the outreach
// scheduler. Every recognized or intentionally ignored case answers 200 so
// the store never enters a retry storm over payloads we chose to skip.
type YampiHandler struct {
	store     storage.Store
	transport services.Transport
	scheduler *services.OutreachScheduler
	events    *gorm.DB
}

// NewYampiHandler creates the webhook handler. events may be nil (memory
// mode); the audit log is then skipped.
func NewYampiHandler(store storage.Store, transport services.Transport, scheduler *services.OutreachScheduler, events *gorm.DB) *YampiHandler {
	return &YampiHandler{
		store:     store,
		transport: transport,
		scheduler: scheduler,
		events:    events,
	}
}

// recordEvent writes one audit row, best effort.
func (h *YampiHandler) recordEvent(event string, orderID int64, outcome string) {
	if h.events == nil {
		return
	}
	row := models.EventRecord{
		ID:         uuid.NewString(),
		Event:      event,
		OrderID:    orderID,
		Outcome:    outcome,
		ReceivedAt: time.Now(),
	}
	if err := h.events.Create(&row).Error; err != nil {
		log.Printf("⚠️  Could not record webhook event: %v", err)
	}
}

// HandleWebhook processes one store event.
func (h *YampiHandler) HandleWebhook(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Webhook panic: %v", r)
			err = c.Status(fiber.StatusInternalServerError).SendString("Internal Error")
		}
	}()

	var payload models.WebhookEvent
	if parseErr := c.BodyParser(&payload); parseErr != nil {
		// Malformed payloads are acknowledged, not bounced: a 4xx/5xx here
		// only buys us provider-side redelivery of garbage.
		log.Printf("⚠️  Unparseable webhook body: %v", parseErr)
		return c.SendString("Ignored event")
	}

	log.Printf("📥 Event: %s", payload.Event)
	resource := payload.Resource
	orderID := resource.ID

	// Payment confirmation, in any event shape, cancels pending outreach.
	if payload.Event == "order.paid" || (payload.Event == "order.updated" && resource.PaidNow()) {
		if orderID != 0 && h.scheduler.MarkPaid(orderID) {
			h.recordEvent(payload.Event, orderID, "timer cancelled")
			return c.SendString("Timer Cancelled")
		}
		h.recordEvent(payload.Event, orderID, "paid, no timer")
		return c.SendString("Paid - No timer")
	}

	if payload.Event != "order.created" {
		h.recordEvent(payload.Event, orderID, "ignored")
		return c.SendString("Ignored event")
	}

	if resource.PaidNow() {
		log.Printf("✅ Order %d was born paid. Ignoring", orderID)
		h.recordEvent(payload.Event, orderID, "already paid")
		return c.SendString("Already Paid")
	}

	if !resource.HasPixPayment() {
		log.Printf("🛑 Order %d created, but payment method is not PIX", orderID)
		h.recordEvent(payload.Event, orderID, "not pix")
		return c.SendString("Ignored - Not Pix")
	}

	phone := resource.PhoneNumber()
	if phone == "" {
		h.recordEvent(payload.Event, orderID, "missing phone")
		return c.Status(fiber.StatusBadRequest).SendString("Missing phone")
	}
	phone = utils.EnsureCountryCode(phone)

	// Validate the number with the transport, falling back to the
	// provisional address when the provider cannot be reached.
	chatID := phone + "@c.us"
	if resolved, resolveErr := h.transport.ResolveChatID(phone); resolveErr == nil && resolved != "" {
		chatID = resolved
	} else if resolveErr != nil {
		log.Printf("⚠️  Number validation failed for %s: %v", phone, resolveErr)
	}

	lead := services.OrderLead{
		OrderID: orderID,
		ChatID:  chatID,
		Key:     utils.NormalizeChatKey(chatID),
		Customer: models.CustomerData{
			Name:     resource.CustomerDisplayName(),
			Type:     "Pix Pendente",
			Products: resource.ProductsSummary(),
			Link:     resource.CheckoutLink(),
			Amount:   resource.Amount(),
		},
	}

	if !h.scheduler.Schedule(lead) {
		h.recordEvent(payload.Event, orderID, "duplicate")
		return c.SendString("Already Scheduled")
	}

	h.recordEvent(payload.Event, orderID, "scheduled")
	return c.SendString("Scheduled")
}
