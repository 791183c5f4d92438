package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aquafit-brasil/pixbot-backend/internal/handlers"
	"github.com/aquafit-brasil/pixbot-backend/internal/middleware"
	"github.com/aquafit-brasil/pixbot-backend/internal/services"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
)

// Deps carries everything the route handlers need.
type Deps struct {
	Store      storage.Store
	Transport  services.Transport
	Scheduler  *services.OutreachScheduler
	Aggregator *services.Aggregator
	Resolver   *services.ContactResolver
	ChatLog    *storage.ChatLog
	Events     *gorm.DB
}

// SetupRoutes configures all HTTP routes.
func SetupRoutes(app *fiber.App, deps Deps) {
	statusHandler := handlers.NewStatusHandler(deps.Transport)
	yampiHandler := handlers.NewYampiHandler(deps.Store, deps.Transport, deps.Scheduler, deps.Events)
	whatsappHandler := handlers.NewWhatsAppHandler(deps.Resolver, deps.Aggregator, deps.ChatLog)
	adminHandler := handlers.NewAdminHandler(deps.Store, deps.Scheduler, deps.Aggregator, deps.Events)

	// Status page + liveness
	app.Get("/", statusHandler.HandleStatus)
	app.Get("/pairing/qr.png", statusHandler.HandlePairingQR)
	app.Get("/health", statusHandler.HandleHealth)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	validationDisabled := os.Getenv("ENVIRONMENT") == "development" ||
		os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true"
	if validationDisabled {
		webhooks.Post("/yampi", yampiHandler.HandleWebhook)
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
		println("⚠️  Webhook signature validation DISABLED")
	} else {
		webhooks.Post("/yampi", middleware.ValidateYampiSignature(), yampiHandler.HandleWebhook)
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if validationDisabled {
		app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)
	}

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin", middleware.RequireAdminToken())
	admin.Get("/overview", adminHandler.HandleOverview)
	admin.Get("/conversations/:key", adminHandler.HandleGetConversation)
}
