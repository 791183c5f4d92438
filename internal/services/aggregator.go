package services

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
	"github.com/aquafit-brasil/pixbot-backend/internal/utils"
)

const (
	// DefaultDebounceWindow is the quiet period after which a burst of
	// customer messages is processed as one unit.
	DefaultDebounceWindow = 30 * time.Second

	// DefaultTypingDelay emulates a human attendant typing before the reply
	// goes out.
	DefaultTypingDelay = 20 * time.Second
)

type msgBuffer struct {
	chatID string
	texts  []string
	timer  *time.Timer
}

// Aggregator coalesces rapid-fire inbound messages per canonical key into a
// single AI turn. Each new message within the debounce window resets the
// timer, so a key has at most one in-flight flush at a time. Messages from
// keys outside the allow-list are dropped before any buffer exists for them.
type Aggregator struct {
	mu          sync.Mutex
	store       storage.Store
	transport   Transport
	ai          Responder
	debounce    time.Duration
	typingDelay time.Duration
	buffers     map[string]*msgBuffer
}

// NewAggregator creates the aggregator. Non-positive durations fall back to
// the defaults.
func NewAggregator(store storage.Store, transport Transport, ai Responder, debounce, typingDelay time.Duration) *Aggregator {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	if typingDelay < 0 {
		typingDelay = DefaultTypingDelay
	}
	return &Aggregator{
		store:       store,
		transport:   transport,
		ai:          ai,
		debounce:    debounce,
		typingDelay: typingDelay,
		buffers:     make(map[string]*msgBuffer),
	}
}

// Ingest buffers one inbound message for a canonical key and (re)starts its
// debounce window. chatID is the address replies should go to, which for an
// alias chat is the alias itself.
func (a *Aggregator) Ingest(key, chatID, text string) {
	if key == "" {
		return
	}
	if !a.store.IsAllowed(key) {
		// Safety boundary: the bot only ever talks to customers it reached
		// out to first.
		log.Printf("🛑 Dropping message from non-allowed key %s", key)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.buffers[key]
	if !ok {
		buf = &msgBuffer{}
		a.buffers[key] = buf
	}
	buf.chatID = chatID
	buf.texts = append(buf.texts, text)

	if buf.timer != nil {
		buf.timer.Stop()
	}
	buf.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

// flush processes everything buffered for a key as one customer turn.
func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	buf, ok := a.buffers[key]
	delete(a.buffers, key)
	a.mu.Unlock()
	if !ok || len(buf.texts) == 0 {
		return
	}

	combined := strings.Join(buf.texts, "\n")

	if err := a.transport.SetTyping(buf.chatID); err != nil {
		log.Printf("⚠️  Could not set typing state: %v", err)
	}
	time.Sleep(a.typingDelay)

	conv := a.store.EnsureConversation(key)
	a.store.AppendMessage(key, models.Message{Role: models.RoleUser, Text: combined})

	reply := a.ai.Generate(a.store.History(key), conv.Customer)
	reply = utils.AppendHiddenTag(reply, key)

	if _, err := a.transport.SendText(buf.chatID, reply); err != nil {
		log.Printf("❌ Failed to send reply to %s: %v", key, err)
	} else {
		a.store.AppendMessage(key, models.Message{Role: models.RoleModel, Text: reply})
	}

	if err := a.transport.ClearTyping(buf.chatID); err != nil {
		log.Printf("⚠️  Could not clear typing state: %v", err)
	}
}

// BufferedKeys returns how many keys currently hold an open debounce window.
func (a *Aggregator) BufferedKeys() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.buffers)
}
