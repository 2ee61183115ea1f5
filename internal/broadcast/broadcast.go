// Package broadcast fans one incident notification out to every subscriber.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/incidentbot/internal/delivery"
	"github.com/user/incidentbot/internal/message"
	"github.com/user/incidentbot/internal/metrics"
	"github.com/user/incidentbot/internal/types"
)

// Broadcaster delivers notifications on a best-effort basis: one attempt per
// subscriber, failures logged and skipped, no retries.
type Broadcaster struct {
	subscribers types.SubscriberStore
	sender      types.Sender
	mirrors     *delivery.Registry
	targets     []string
	metrics     *metrics.Metrics
}

// Option configures optional Broadcaster behavior.
type Option func(*Broadcaster)

// WithMirrors also hands every notification to the given targets through
// the registry, after the subscribers.
func WithMirrors(reg *delivery.Registry, targets ...string) Option {
	return func(b *Broadcaster) {
		b.mirrors = reg
		b.targets = append(b.targets, targets...)
	}
}

// WithMetrics records delivery outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Broadcaster) { b.metrics = m }
}

// New creates a Broadcaster reading subscribers from store and sending through sender.
func New(store types.SubscriberStore, sender types.Sender, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		subscribers: store,
		sender:      sender,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Broadcast attempts delivery of inc to every subscriber exactly once. It
// returns an error only when the subscriber list cannot be read.
func (b *Broadcaster) Broadcast(ctx context.Context, inc *types.Incident) error {
	ids, err := b.subscribers.ListSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}

	bid := types.NewBroadcastID()
	text := message.Notification(inc)
	failed := 0

	for _, id := range ids {
		if err := b.sender.SendText(ctx, id, text); err != nil {
			failed++
			b.metrics.Delivery(false)
			slog.Warn("broadcast delivery failed",
				"broadcast_id", string(bid),
				"user_id", id,
				"error", err,
			)
			continue
		}
		b.metrics.Delivery(true)
	}

	b.mirror(ctx, bid, delivery.Notification{Incident: inc, Text: text})

	slog.Info("broadcast finished",
		"broadcast_id", string(bid),
		"incident_id", inc.ID,
		"subscribers", len(ids),
		"failed", failed,
	)
	return nil
}

func (b *Broadcaster) mirror(ctx context.Context, bid types.BroadcastID, n delivery.Notification) {
	if b.mirrors == nil {
		return
	}
	for _, target := range b.targets {
		err := b.mirrors.Deliver(ctx, target, n)
		b.metrics.MirrorDelivery(delivery.TargetKind(target), err == nil)
		if err != nil {
			slog.Warn("mirror delivery failed",
				"broadcast_id", string(bid),
				"target", target,
				"error", err,
			)
		}
	}
}
