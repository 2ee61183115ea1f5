package gateway

import (
	"context"

	"github.com/user/incidentbot/internal/types"
)

// Processor handles one dequeued run.
type Processor func(*Run) error

// Gateway serializes inbound messages per sender before they reach the
// processor. With maxConcurrent 1 only one message is handled at a time
// across all senders.
type Gateway struct {
	Queue *Queue

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Gateway with the given concurrency limit (default 1).
func New(maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 1
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	return &Gateway{
		Queue: NewQueue(concurrency),
	}
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context and waits for the queue to drain.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
}

// HandleInbound wraps msg in a Run and enqueues it on the sender's lane.
func (g *Gateway) HandleInbound(msg *types.InboundMessage) error {
	return g.Queue.Enqueue(NewRun(msg))
}
