// Package natspub publishes stored incidents as JSON events on a NATS
// subject so other services can consume them.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/user/incidentbot/internal/delivery"
	"github.com/user/incidentbot/internal/gateway"
	"github.com/user/incidentbot/internal/types"
)

const (
	// Prefix is the delivery target prefix handled by this package.
	Prefix = "nats:"

	// DefaultSubject is used when none is configured.
	DefaultSubject = "incidents.created"
)

// conn abstracts the *nats.Conn methods we use, enabling test mocks.
type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// Event is the published payload.
type Event struct {
	Incident    *types.Incident `json:"incident"`
	Text        string          `json:"text"`
	PublishedAt time.Time       `json:"published_at"`
}

// Publisher sends events on a subject.
type Publisher struct {
	nc      conn
	subject string
}

// Connect dials url, retrying transient failures with policy. A nil policy
// uses gateway.DefaultRetryPolicy.
func Connect(ctx context.Context, url, subject string, policy *gateway.RetryPolicy) (*Publisher, error) {
	if policy == nil {
		policy = gateway.DefaultRetryPolicy()
	}
	var nc *nats.Conn
	err := policy.Execute(ctx, func() error {
		var err error
		nc, err = nats.Connect(url, nats.Name("incidentbot"))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	slog.Info("nats connected", "url", nc.ConnectedUrl(), "subject", subject)
	return newPublisher(nc, subject), nil
}

func newPublisher(nc conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{nc: nc, subject: subject}
}

// Target returns the delivery target for the configured subject.
func (p *Publisher) Target() string {
	return Prefix + p.subject
}

// Deliver implements delivery.Handler.
func (p *Publisher) Deliver(_ context.Context, target string, n delivery.Notification) error {
	subject := delivery.TargetName(target)
	if subject == "" {
		subject = p.subject
	}
	data, err := json.Marshal(Event{
		Incident:    n.Incident,
		Text:        n.Text,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("nats: encode event: %w", err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
