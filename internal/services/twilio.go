package services

import (
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	twilioLookups "github.com/twilio/twilio-go/rest/lookups/v1"

	"github.com/aquafit-brasil/pixbot-backend/internal/storage"
	"github.com/aquafit-brasil/pixbot-backend/internal/utils"
)

// TwilioTransport implements Transport over the Twilio WhatsApp API. Twilio
// has no pairing handshake, so the channel reports connected from the start,
// and presence indicators are not exposed, so typing toggles are no-ops. Every
// sent message is recorded into the chat log so the alias resolver can see
// what the bot last said in a chat.
type TwilioTransport struct {
	client  *twilio.RestClient
	from    string
	chatLog *storage.ChatLog
}

// NewTwilioTransport creates the transport from TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM.
func NewTwilioTransport(chatLog *storage.ChatLog) (*TwilioTransport, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM") // Format: "whatsapp:+14155238886"

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioTransport{
		client:  client,
		from:    from,
		chatLog: chatLog,
	}, nil
}

// SendText sends a WhatsApp message to a chat address.
func (t *TwilioTransport) SendText(chatID, text string) (string, error) {
	digits := utils.NormalizeChatKey(chatID)
	if digits == "" {
		return "", fmt.Errorf("unroutable chat address %q", chatID)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:+%s", digits))
	params.SetBody(text)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return "", err
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Printf("✅ WhatsApp message sent! SID: %s", sid)

	if t.chatLog != nil {
		t.chatLog.Record(storage.ChatMessage{
			ID:     sid,
			ChatID: chatID,
			FromMe: true,
			Text:   text,
		})
	}
	return sid, nil
}

// ResolveChatID validates a phone number through the Lookup API and returns
// its canonical chat address.
func (t *TwilioTransport) ResolveChatID(phone string) (string, error) {
	digits := utils.DigitsOnly(phone)
	if digits == "" {
		return "", fmt.Errorf("empty phone number")
	}

	resp, err := t.client.LookupsV1.FetchPhoneNumber("+"+digits, &twilioLookups.FetchPhoneNumberParams{})
	if err != nil {
		return "", err
	}
	if resp.PhoneNumber == nil {
		return "", fmt.Errorf("lookup returned no number for +%s", digits)
	}
	return utils.DigitsOnly(*resp.PhoneNumber) + "@c.us", nil
}

// RecentMessages serves the resolver's window from the local chat log; the
// Twilio API has no cheap per-chat history endpoint.
func (t *TwilioTransport) RecentMessages(chatID string, limit int) ([]storage.ChatMessage, error) {
	if t.chatLog == nil {
		return nil, nil
	}
	return t.chatLog.Recent(chatID, limit), nil
}

func (t *TwilioTransport) SetTyping(chatID string) error   { return nil }
func (t *TwilioTransport) ClearTyping(chatID string) error { return nil }

func (t *TwilioTransport) PairingCode() string { return "" }

func (t *TwilioTransport) Connected() bool { return t.client != nil }
