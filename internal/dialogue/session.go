package dialogue

import (
	"sync"

	"github.com/user/incidentbot/internal/types"
)

// Session is the in-memory progress of one sender through the questionnaire.
type Session struct {
	State  State
	Fields map[Field]string
}

// Sessions maps senders to their dialogue sessions. Sessions live until
// completed, reset, or the process exits.
type Sessions struct {
	mu sync.Mutex
	m  map[types.SenderID]*Session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[types.SenderID]*Session)}
}

// Reset discards any session for id and starts a new one at WaitDate.
func (s *Sessions) Reset(id types.SenderID) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{State: WaitDate, Fields: make(map[Field]string, len(steps)-1)}
	s.m[id] = sess
	return sess
}

// Get returns the session for id, or nil when the sender is idle.
func (s *Sessions) Get(id types.SenderID) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[id]
}

// Clear drops the session for id.
func (s *Sessions) Clear(id types.SenderID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

// Len returns the number of sessions in progress.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
