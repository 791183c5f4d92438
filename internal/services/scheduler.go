package services

import (
	"log"
	"sync"
	"time"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
	"github.com/aquafit-brasil/pixbot-backend/internal/utils"
)

// DefaultOutreachDelay is how long an unpaid PIX order waits before the bot
// reaches out. Long enough that customers who were just slow to pay never
// hear from us.
const DefaultOutreachDelay = 15 * time.Minute

// OrderLead is the outreach payload extracted from a qualifying order event.
type OrderLead struct {
	OrderID  int64
	ChatID   string
	Key      string
	Customer models.CustomerData
}

// OutreachScheduler is the order-lifecycle state machine. Per order id:
//
//	absent → pending(timer) → fired | cancelled
//
// A paid event cancels a pending timer and always leaves a paid marker; the
// marker is re-checked at the top of the fired action, which closes the race
// where payment lands after the timer handle was already taken but before the
// message went out. Timers live in memory only: a restart drops in-flight
// outreach (the webhook event log keeps the operator breadcrumb).
type OutreachScheduler struct {
	mu        sync.Mutex
	store     storage.Store
	transport Transport
	ai        Responder
	delay     time.Duration
	pending   map[int64]*time.Timer
	paid      map[int64]struct{}
	fired     map[int64]struct{}
}

// NewOutreachScheduler creates the scheduler. A zero delay falls back to
// DefaultOutreachDelay.
func NewOutreachScheduler(store storage.Store, transport Transport, ai Responder, delay time.Duration) *OutreachScheduler {
	if delay <= 0 {
		delay = DefaultOutreachDelay
	}
	return &OutreachScheduler{
		store:     store,
		transport: transport,
		ai:        ai,
		delay:     delay,
		pending:   make(map[int64]*time.Timer),
		paid:      make(map[int64]struct{}),
		fired:     make(map[int64]struct{}),
	}
}

// Schedule arms the delayed outreach for an order. Returns false when the
// order is already pending, already fired, or already known paid, so duplicate
// webhook deliveries are no-ops.
func (s *OutreachScheduler) Schedule(lead OrderLead) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[lead.OrderID]; ok {
		return false
	}
	if _, ok := s.fired[lead.OrderID]; ok {
		return false
	}
	if _, ok := s.paid[lead.OrderID]; ok {
		return false
	}

	log.Printf("⏳ Pending PIX detected (order %d). Amount: %.2f. Scheduling outreach in %s",
		lead.OrderID, lead.Customer.Amount, s.delay)
	s.pending[lead.OrderID] = time.AfterFunc(s.delay, func() {
		s.fire(lead)
	})
	return true
}

// MarkPaid records a payment confirmation. A pending timer is cancelled; the
// marker stays either way so a fire already in flight, or a late duplicate
// "created" event, sees the payment. Returns true when a timer was cancelled.
func (s *OutreachScheduler) MarkPaid(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paid[orderID] = struct{}{}
	timer, ok := s.pending[orderID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.pending, orderID)
	log.Printf("🎉 Payment confirmed for order %d. Outreach cancelled", orderID)
	return true
}

// fire runs when the delay elapses without a cancellation reaching the timer.
func (s *OutreachScheduler) fire(lead OrderLead) {
	s.mu.Lock()
	delete(s.pending, lead.OrderID)
	if _, ok := s.paid[lead.OrderID]; ok {
		// Payment landed while the timer was firing: consume the marker and
		// say nothing.
		delete(s.paid, lead.OrderID)
		s.mu.Unlock()
		log.Printf("🎉 Order %d paid before outreach went out. Aborting silently", lead.OrderID)
		return
	}
	s.fired[lead.OrderID] = struct{}{}
	s.mu.Unlock()

	log.Printf("🚀 Executing outreach for order %d: %s (%s)", lead.OrderID, lead.Customer.Name, lead.Key)

	// A recovery conversation always starts clean, whatever history the key
	// had before. Only now does the customer enter the allow-list.
	s.store.ResetConversation(lead.Key, lead.ChatID, lead.Customer)
	s.store.Allow(lead.Key)

	opening := s.ai.Generate(nil, lead.Customer)
	opening = utils.AppendHiddenTag(opening, lead.Key)

	if _, err := s.transport.SendText(lead.ChatID, opening); err != nil {
		// Best effort, one attempt per slot. The assistant turn is only
		// recorded when it actually went out, or alias matching would key on
		// text the customer never saw.
		log.Printf("❌ Outreach send failed for order %d: %v", lead.OrderID, err)
		return
	}

	s.store.AppendMessage(lead.Key, models.Message{Role: models.RoleModel, Text: opening})
}

// HasPending reports whether an order still has an armed timer.
func (s *OutreachScheduler) HasPending(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[orderID]
	return ok
}

// PendingCount returns the number of armed timers.
func (s *OutreachScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

// PaidMarkerCount returns the number of unconsumed paid markers.
func (s *OutreachScheduler) PaidMarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.paid)
}

// Stop cancels all armed timers, for shutdown.
func (s *OutreachScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for orderID, timer := range s.pending {
		timer.Stop()
		delete(s.pending, orderID)
	}
}
