package services

import (
	"log"
	"sort"
	"strings"

	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
	"github.com/aquafit-brasil/pixbot-backend/internal/utils"
)

// resolverWindow is how many recent chat messages the resolver inspects when
// correlating an ephemeral alias.
const resolverWindow = 15

// ContactResolver maps raw network addresses to canonical customer keys. For
// stable addresses this is pure normalization; for ephemeral "@lid" aliases it
// correlates the last message the bot delivered in that chat against the
// allow-listed conversation memories. The network exposes no stable identifier
// for alias chats, so that text overlap is the only signal available and the
// result is a best-effort guess that callers must tolerate being empty.
type ContactResolver struct {
	store     storage.Store
	transport Transport
}

func NewContactResolver(store storage.Store, transport Transport) *ContactResolver {
	return &ContactResolver{store: store, transport: transport}
}

// Resolve returns the canonical key for an inbound message, or "" when the
// sender cannot be identified (the message is then dropped upstream).
func (r *ContactResolver) Resolve(msg InboundMessage) string {
	rawID := msg.ChatAddress()
	if rawID == "" {
		return ""
	}

	if key, ok := r.store.CachedAlias(rawID); ok {
		return key
	}
	if !strings.Contains(rawID, "@lid") {
		return utils.NormalizeChatKey(rawID)
	}

	recent, err := r.transport.RecentMessages(rawID, resolverWindow)
	if err != nil {
		log.Printf("⚠️  Alias lookup failed for %s: %v", rawID, err)
		return ""
	}

	// The most recent text the bot actually delivered in this chat.
	var delivered string
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].FromMe && strings.TrimSpace(recent[i].Text) != "" {
			delivered = strings.TrimSpace(recent[i].Text)
			break
		}
	}
	if delivered == "" {
		return ""
	}

	lastByKey := r.store.AllowedLastAssistant()
	keys := make([]string, 0, len(lastByKey))
	for key := range lastByKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		memory := strings.TrimSpace(lastByKey[key])
		if memory == "" {
			continue
		}
		if strings.Contains(delivered, memory) || strings.Contains(memory, delivered) {
			r.store.CacheAlias(rawID, key)
			log.Printf("🔗 Alias %s resolved to %s", rawID, key)
			return key
		}
	}
	return ""
}
