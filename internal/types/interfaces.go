// internal/types/interfaces.go
package types

import (
	"context"
)

type SubscriberStore interface {
	AddSubscriber(ctx context.Context, id int64) error
	ListSubscribers(ctx context.Context) ([]int64, error)
}

type IncidentStore interface {
	AddIncident(ctx context.Context, incident *Incident) error
	ListRecentIncidents(ctx context.Context, limit int) ([]*Incident, error)
}

// Sender delivers plain text to a single chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}
