package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/aquafit-brasil/pixbot-backend/database"
	"github.com/aquafit-brasil/pixbot-backend/internal/jobs"
	"github.com/aquafit-brasil/pixbot-backend/internal/routes"
	"github.com/aquafit-brasil/pixbot-backend/internal/services"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("environments/.env.development"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = ".data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Printf("⚠️  Could not create data directory: %v", err)
	}

	// Initialize storage
	var store storage.Store
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		store = storage.NewFileStore(filepath.Join(dataDir, "bot_state.json"))
		database.Connect()
	}
	storage.SetStore(store)

	chatLog := storage.NewChatLog(filepath.Join(dataDir, "wpp_store.json"))

	// Chat transport
	transport, err := services.NewTwilioTransport(chatLog)
	if err != nil {
		log.Fatal("Failed to initialize chat transport:", err)
	}
	log.Println("✅ Chat transport initialized")

	// AI service
	ai, err := services.NewGeminiService()
	if err != nil {
		log.Fatal("Failed to initialize AI service:", err)
	}
	log.Println("✅ AI service initialized")

	// Coordinator services
	scheduler := services.NewOutreachScheduler(store, transport, ai, outreachDelay())
	aggregator := services.NewAggregator(store, transport, ai,
		services.DefaultDebounceWindow, services.DefaultTypingDelay)
	resolver := services.NewContactResolver(store, transport)

	maintenance := jobs.NewMaintenanceJob(store, chatLog, scheduler)
	maintenance.Start()

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "AquaFit PIX Bot v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New())

	routes.SetupRoutes(app, routes.Deps{
		Store:      store,
		Transport:  transport,
		Scheduler:  scheduler,
		Aggregator: aggregator,
		Resolver:   resolver,
		ChatLog:    chatLog,
		Events:     database.DB,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		maintenance.Stop()
		scheduler.Stop()
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("👂 Webhook listening on port %s", port)
	log.Printf("⏱  Outreach delay: %s", outreachDelay())
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

// outreachDelay reads OUTREACH_DELAY_MINUTES, defaulting to the standard
// 15-minute recovery window.
func outreachDelay() time.Duration {
	if v := os.Getenv("OUTREACH_DELAY_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return services.DefaultOutreachDelay
}
