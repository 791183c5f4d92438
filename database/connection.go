package database

import (
	"log"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
)

var DB *gorm.DB

// Connect opens the embedded event-log database and runs migrations. The bot
// is a single-process deployment, so an embedded store is all it needs.
func Connect() {
	path := os.Getenv("EVENTS_DB_PATH")
	if path == "" {
		path = filepath.Join(".data", "events.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("⚠️  Could not create database directory: %v", err)
		}
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Printf("Failed to open event database: %v", err)
		panic(err)
	}

	if err := DB.AutoMigrate(&models.EventRecord{}); err != nil {
		log.Printf("Failed to migrate event database: %v", err)
		panic(err)
	}

	log.Println("✅ Event database connected successfully!")
}
