// internal/types/ids.go
package types

import (
	"strconv"

	"github.com/google/uuid"
)

// SenderID identifies a chat participant (a Telegram user id).
type SenderID int64

// BroadcastID correlates the log lines of one broadcast.
type BroadcastID string

// RunID identifies one processed inbound message.
type RunID string

func NewBroadcastID() BroadcastID {
	return BroadcastID(uuid.New().String())
}

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func (id SenderID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
