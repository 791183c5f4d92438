package handlers

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
	"github.com/aquafit-brasil/pixbot-backend/internal/services"
	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
	"github.com/aquafit-brasil/pixbot-backend/internal/utils"
)

type yampiFixture struct {
	app       *fiber.App
	store     storage.Store
	transport *fakeTransport
	scheduler *services.OutreachScheduler
}

func newYampiFixture(t *testing.T, delay time.Duration) *yampiFixture {
	t.Helper()

	store := storage.NewMemoryStore()
	transport := newFakeTransport()
	responder := &fakeResponder{reply: "Oi Maria, vi que seu PIX ficou pendente!"}
	scheduler := services.NewOutreachScheduler(store, transport, responder, delay)
	t.Cleanup(scheduler.Stop)

	app := fiber.New()
	handler := NewYampiHandler(store, transport, scheduler, nil)
	app.Post("/webhook/yampi", handler.HandleWebhook)

	return &yampiFixture{
		app:       app,
		store:     store,
		transport: transport,
		scheduler: scheduler,
	}
}

func (f *yampiFixture) post(t *testing.T, body string) (int, string) {
	t.Helper()

	req := httptest.NewRequest("POST", "/webhook/yampi", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

const pixOrderBody = `{
	"event": "order.created",
	"resource": {
		"id": 42,
		"paid": false,
		"payments": {"data": [{"is_pix": true}]},
		"customer": {"data": {"name": "Maria", "phone": {"full_number": "11999998888"}}},
		"items": {"data": [{"product_name": "Legging AquaFit"}]},
		"checkout_url": "https://loja.aquafit/checkout/42",
		"total_price": 150
	}
}`

func TestUnpaidPixOrderSchedulesOutreach(t *testing.T) {
	f := newYampiFixture(t, 50*time.Millisecond)

	status, body := f.post(t, pixOrderBody)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Scheduled", body)
	assert.Equal(t, 1, f.scheduler.PendingCount())

	// Nothing goes out before the delay elapses.
	assert.Empty(t, f.transport.sentMessages())

	require.Eventually(t, func() bool {
		return len(f.transport.sentMessages()) == 1
	}, time.Second, 10*time.Millisecond)

	sent := f.transport.sentMessages()[0]
	assert.Equal(t, "5511999998888@c.us", sent.chatID)
	assert.Equal(t, "5511999998888", utils.DecodeHiddenTag(sent.text))

	// The customer is now allowed to talk back and the opening turn is on
	// record.
	assert.True(t, f.store.IsAllowed("5511999998888"))
	history := f.store.History("5511999998888")
	require.Len(t, history, 1)
	assert.Equal(t, models.RoleModel, history[0].Role)
}

func TestRedeliveredCreatedEventIsIdempotent(t *testing.T) {
	f := newYampiFixture(t, time.Hour)

	_, body := f.post(t, pixOrderBody)
	assert.Equal(t, "Scheduled", body)

	_, body = f.post(t, pixOrderBody)
	assert.Equal(t, "Already Scheduled", body)
	assert.Equal(t, 1, f.scheduler.PendingCount())
}

func TestPaidEventCancelsPendingTimer(t *testing.T) {
	f := newYampiFixture(t, 50*time.Millisecond)

	_, body := f.post(t, pixOrderBody)
	require.Equal(t, "Scheduled", body)

	status, body := f.post(t, `{"event": "order.paid", "resource": {"id": 42}}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Timer Cancelled", body)
	assert.Equal(t, 0, f.scheduler.PendingCount())

	// Past the original deadline, still silent.
	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, f.transport.sentMessages())
}

func TestPaidUpdateWithStatusObjectCancels(t *testing.T) {
	f := newYampiFixture(t, time.Hour)

	_, body := f.post(t, pixOrderBody)
	require.Equal(t, "Scheduled", body)

	_, body = f.post(t, `{
		"event": "order.updated",
		"resource": {"id": 42, "status": {"data": {"alias": "paid"}}}
	}`)
	assert.Equal(t, "Timer Cancelled", body)
}

func TestPaidEventWithoutTimer(t *testing.T) {
	f := newYampiFixture(t, time.Hour)

	status, body := f.post(t, `{"event": "order.paid", "resource": {"id": 99}}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Paid - No timer", body)
}

func TestNonPixOrderIsIgnored(t *testing.T) {
	f := newYampiFixture(t, time.Hour)

	status, body := f.post(t, `{
		"event": "order.created",
		"resource": {
			"id": 7,
			"payments": {"data": [{"name": "Cartão de Crédito", "alias": "credit_card"}]},
			"customer": {"phone": {"full_number": "11999998888"}}
		}
	}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ignored - Not Pix", body)
	assert.Equal(t, 0, f.scheduler.PendingCount())
}

func TestOrderBornPaidIsIgnored(t *testing.T) {
	f := newYampiFixture(t, time.Hour)

	status, body := f.post(t, `{
		"event": "order.created",
		"resource": {
			"id": 8,
			"paid": true,
			"payments": {"data": [{"is_pix": true}]},
			"customer": {"phone": {"full_number": "11999998888"}}
		}
	}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Already Paid", body)
	assert.Equal(t, 0, f.scheduler.PendingCount())
}

func TestPixOrderWithoutPhoneIsRejected(t *testing.T) {
	f := newYampiFixture(t, time.Hour)

	status, body := f.post(t, `{
		"event": "order.created",
		"resource": {"id": 9, "payments": {"data": [{"is_pix": true}]}}
	}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Missing phone", body)
}

func TestUnknownEventIsAcknowledged(t *testing.T) {
	f := newYampiFixture(t, time.Hour)

	status, body := f.post(t, `{"event": "cart.reminder", "resource": {"id": 10}}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ignored event", body)
}

func TestMalformedBodyIsAcknowledged(t *testing.T) {
	f := newYampiFixture(t, time.Hour)

	status, body := f.post(t, `{not json at all`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ignored event", body)
}

func TestResolveFailureFallsBackToProvisionalAddress(t *testing.T) {
	f := newYampiFixture(t, 50*time.Millisecond)
	f.transport.resolveErr = assert.AnError

	_, body := f.post(t, pixOrderBody)
	require.Equal(t, "Scheduled", body)

	require.Eventually(t, func() bool {
		return len(f.transport.sentMessages()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "5511999998888@c.us", f.transport.sentMessages()[0].chatID)
}
