// internal/types/models.go
package types

import (
	"time"
)

// Incident is one reported railway incident. Every text field is free
// text taken verbatim (after trimming) from the dialogue; ID and
// CreatedAt are assigned by the store.
type Incident struct {
	ID           int64     `json:"id"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Segment      string    `json:"segment"`
	Track        string    `json:"track"`
	KmPk         string    `json:"km_pk"`
	IncidentType string    `json:"incident_type"`
	Description  string    `json:"description"`
	Chairman     string    `json:"chairman"`
	CreatedAt    time.Time `json:"created_at"`
}

// InboundMessage is a text message received from the chat transport.
type InboundMessage struct {
	Source    string   `json:"source"`
	SenderID  SenderID `json:"sender_id"`
	ChatID    int64    `json:"chat_id"`
	MessageID int      `json:"message_id,omitempty"`
	Text      string   `json:"text"`
}
