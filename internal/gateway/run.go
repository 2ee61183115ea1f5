package gateway

import (
	"context"
	"time"

	"github.com/user/incidentbot/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run tracks the processing of a single inbound message.
type Run struct {
	ID        types.RunID
	SenderID  types.SenderID
	Message   *types.InboundMessage
	Status    RunStatus
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	Error     error
	Ctx       context.Context
}

// NewRun creates a Run in the Queued state for the given message.
func NewRun(msg *types.InboundMessage) *Run {
	return &Run{
		ID:        types.NewRunID(),
		SenderID:  msg.SenderID,
		Message:   msg,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
	}
}
