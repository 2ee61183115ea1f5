// Package dialogue implements the eight-step incident questionnaire.
//
// The questionnaire is strictly linear: date, time, segment, track, km/pk,
// incident type, description, chairman. Each reply is trimmed and stored
// without validation. Once the chairman is captured the record is persisted,
// broadcast, and the session is cleared.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/incidentbot/internal/metrics"
	"github.com/user/incidentbot/internal/types"
)

// CompletedReply is sent to the sender once the record is saved and broadcast.
const CompletedReply = "✅ Оповещение сохранено и отправлено всем подписчикам."

// Broadcaster notifies subscribers about a stored incident.
type Broadcaster interface {
	Broadcast(ctx context.Context, inc *types.Incident) error
}

// Engine drives dialogue sessions. Calls for one sender must not overlap;
// the gateway queue guarantees this.
type Engine struct {
	sessions    *Sessions
	incidents   types.IncidentStore
	broadcaster Broadcaster
	metrics     *metrics.Metrics
}

// New creates an Engine. m may be nil.
func New(sessions *Sessions, incidents types.IncidentStore, broadcaster Broadcaster, m *metrics.Metrics) *Engine {
	return &Engine{
		sessions:    sessions,
		incidents:   incidents,
		broadcaster: broadcaster,
		metrics:     m,
	}
}

// Sessions exposes the session map, e.g. for status reporting.
func (e *Engine) Sessions() *Sessions {
	return e.sessions
}

// Start begins a new questionnaire for sender, discarding any unfinished
// one, and returns the first prompt.
func (e *Engine) Start(sender types.SenderID) string {
	if prev := e.sessions.Get(sender); prev != nil {
		slog.Debug("dialogue restarted", "sender_id", int64(sender), "discarded_state", prev.State.String())
	}
	sess := e.sessions.Reset(sender)
	return sess.State.Prompt()
}

// Active reports whether sender is in the middle of a questionnaire.
func (e *Engine) Active(sender types.SenderID) bool {
	return e.sessions.Get(sender) != nil
}

// Handle feeds one text reply into sender's session. handled is false when
// the sender has no session in progress.
func (e *Engine) Handle(ctx context.Context, sender types.SenderID, text string) (reply string, handled bool, err error) {
	sess := e.sessions.Get(sender)
	if sess == nil || sess.State == Idle {
		return "", false, nil
	}

	sess.Fields[sess.State.Field()] = strings.TrimSpace(text)

	if sess.State != WaitChairman {
		sess.State = sess.State.next()
		return sess.State.Prompt(), true, nil
	}

	inc := assemble(sess.Fields)
	if err := e.incidents.AddIncident(ctx, inc); err != nil {
		return "", true, fmt.Errorf("save incident: %w", err)
	}
	e.metrics.IncidentStored()
	slog.Info("incident stored", "incident_id", inc.ID, "sender_id", int64(sender))

	if err := e.broadcaster.Broadcast(ctx, inc); err != nil {
		return "", true, err
	}

	e.sessions.Clear(sender)
	return CompletedReply, true, nil
}

func assemble(f map[Field]string) *types.Incident {
	return &types.Incident{
		Date:         f[FieldDate],
		Time:         f[FieldTime],
		Segment:      f[FieldSegment],
		Track:        f[FieldTrack],
		KmPk:         f[FieldKmPk],
		IncidentType: f[FieldIncidentType],
		Description:  f[FieldDescription],
		Chairman:     f[FieldChairman],
	}
}
