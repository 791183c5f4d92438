package jobs

import (
	"log"
	"time"

	"github.com/aquafit-brasil/pixbot-backend/internal/services"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
)

// chatLogFlushInterval is how often the rolling chat log hits disk.
const chatLogFlushInterval = 30 * time.Second

// MaintenanceJob runs the background housekeeping: periodic chat-log flushes
// and an hourly state summary log line.
type MaintenanceJob struct {
	store     storage.Store
	chatLog   *storage.ChatLog
	scheduler *services.OutreachScheduler
	isRunning bool
}

// NewMaintenanceJob creates the job runner.
func NewMaintenanceJob(store storage.Store, chatLog *storage.ChatLog, scheduler *services.OutreachScheduler) *MaintenanceJob {
	return &MaintenanceJob{
		store:     store,
		chatLog:   chatLog,
		scheduler: scheduler,
	}
}

// Start begins the background loops.
func (m *MaintenanceJob) Start() {
	if m.isRunning {
		log.Println("Maintenance jobs already running")
		return
	}
	m.isRunning = true
	log.Println("Starting maintenance jobs...")

	go m.flushLoop()
	go m.summaryLoop()
}

// Stop halts the loops and flushes the chat log one last time.
func (m *MaintenanceJob) Stop() {
	m.isRunning = false
	if m.chatLog != nil {
		if err := m.chatLog.Flush(); err != nil {
			log.Printf("⚠️  Final chat log flush failed: %v", err)
		}
	}
	log.Println("Stopping maintenance jobs...")
}

func (m *MaintenanceJob) flushLoop() {
	for m.isRunning {
		time.Sleep(chatLogFlushInterval)
		if !m.isRunning {
			break
		}
		if m.chatLog == nil {
			continue
		}
		if err := m.chatLog.Flush(); err != nil {
			log.Printf("⚠️  Chat log flush failed: %v", err)
		}
	}
}

func (m *MaintenanceJob) summaryLoop() {
	for m.isRunning {
		time.Sleep(time.Hour)
		if !m.isRunning {
			break
		}
		counts := m.store.Counts()
		log.Printf("📊 State: %d conversations | %d aliases | %d allowed | %d pending timers",
			counts.Conversations, counts.Aliases, counts.Allowed, m.scheduler.PendingCount())
	}
}
