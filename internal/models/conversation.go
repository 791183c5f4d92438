package models

// Message roles, mirroring the Gemini wire format.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of a conversation. History is strictly append-only.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// CustomerData is the order context attached to a recovery conversation.
type CustomerData struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Products string  `json:"products"`
	Link     string  `json:"link"`
	Amount   float64 `json:"amount"`
}

// Conversation is the per-customer record, keyed in the store by the
// canonical digits-only key. ChatID keeps the full network address used for
// sending replies.
type Conversation struct {
	ChatID   string       `json:"chat_id"`
	Customer CustomerData `json:"customer"`
	History  []Message    `json:"history"`
}

// LastAssistantText returns the text of the most recent assistant turn, or ""
// when the bot has not spoken yet.
func (c *Conversation) LastAssistantText() string {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == RoleModel {
			return c.History[i].Text
		}
	}
	return ""
}
