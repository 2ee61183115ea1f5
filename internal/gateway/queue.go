package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/incidentbot/internal/types"
)

// laneBuffer is the number of messages a single sender may have queued.
const laneBuffer = 100

// Queue manages per-sender lanes with a global concurrency semaphore.
// Each sender gets its own FIFO channel (lane) so that messages from one
// sender are processed strictly in order, while the semaphore limits the
// total number of concurrent processors across all senders.
type Queue struct {
	lanes     map[types.SenderID]chan *Run
	semaphore *semaphore.Weighted
	processor Processor
	inflight  atomic.Int64 // enqueued and not yet finished
	stopped   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewQueue creates a Queue that allows up to maxConcurrent runs to execute
// simultaneously across all sender lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.SenderID]chan *Run),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// processors to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	if !q.stopped {
		q.stopped = true
		for _, lane := range q.lanes {
			close(lane)
		}
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Run to the sender's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return fmt.Errorf("queue stopped")
	}

	lane, exists := q.lanes[run.SenderID]
	if !exists {
		lane = make(chan *Run, laneBuffer)
		q.lanes[run.SenderID] = lane
		q.wg.Add(1)
		go q.processLane(run.SenderID, lane)
	}

	select {
	case lane <- run:
		q.inflight.Add(1)
		return nil
	default:
		return fmt.Errorf("queue full for sender %s", run.SenderID)
	}
}

// processLane drains a single sender lane, acquiring a semaphore slot
// before running the processor synchronously.
func (q *Queue) processLane(sender types.SenderID, lane chan *Run) {
	defer q.wg.Done()
	for {
		select {
		case run, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			q.process(run)
			q.semaphore.Release(1)
			q.inflight.Add(-1)
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) process(run *Run) {
	q.mu.RLock()
	processor := q.processor
	q.mu.RUnlock()
	if processor == nil {
		return
	}

	started := time.Now()
	run.StartedAt = &started
	run.Status = RunStatusRunning
	run.Ctx = q.ctx

	err := processor(run)

	ended := time.Now()
	run.EndedAt = &ended
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err
		slog.Error("run failed",
			"run_id", string(run.ID),
			"sender_id", int64(run.SenderID),
			"error", err,
		)
		return
	}
	run.Status = RunStatusComplete
}

// WaitIdle blocks until no runs are queued or being processed, or the timeout
// expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.inflight.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn Processor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processor = fn
}
