package models

import "time"

// EventRecord is one row of the webhook audit log. Every store event gets a
// row with the outcome the interpreter decided on, which is the only durable
// trace of scheduling decisions (pending timers themselves live in memory).
type EventRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Event      string    `gorm:"index" json:"event"`
	OrderID    int64     `gorm:"index" json:"order_id"`
	Outcome    string    `json:"outcome"`
	ReceivedAt time.Time `json:"received_at"`
}
