package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
	"github.com/aquafit-brasil/pixbot-backend/internal/services"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
)

// AdminHandler exposes the operational view: state counts, timer table size,
// and individual conversation records.
type AdminHandler struct {
	store      storage.Store
	scheduler  *services.OutreachScheduler
	aggregator *services.Aggregator
	events     *gorm.DB
}

func NewAdminHandler(store storage.Store, scheduler *services.OutreachScheduler, aggregator *services.Aggregator, events *gorm.DB) *AdminHandler {
	return &AdminHandler{
		store:      store,
		scheduler:  scheduler,
		aggregator: aggregator,
		events:     events,
	}
}

// HandleOverview summarizes the coordinator state.
func (h *AdminHandler) HandleOverview(c *fiber.Ctx) error {
	counts := h.store.Counts()

	var eventCount int64
	if h.events != nil {
		h.events.Model(&models.EventRecord{}).Count(&eventCount)
	}

	return c.JSON(fiber.Map{
		"conversations":  counts.Conversations,
		"aliases":        counts.Aliases,
		"allowed":        counts.Allowed,
		"pending_timers": h.scheduler.PendingCount(),
		"paid_markers":   h.scheduler.PaidMarkerCount(),
		"open_buffers":   h.aggregator.BufferedKeys(),
		"webhook_events": eventCount,
	})
}

// HandleGetConversation returns one conversation record by canonical key.
func (h *AdminHandler) HandleGetConversation(c *fiber.Ctx) error {
	key := c.Params("key")
	conv, ok := h.store.GetConversation(key)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "conversation not found",
		})
	}
	return c.JSON(fiber.Map{
		"key":          key,
		"allowed":      h.store.IsAllowed(key),
		"conversation": conv,
	})
}
