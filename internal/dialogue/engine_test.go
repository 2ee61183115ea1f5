package dialogue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/incidentbot/internal/broadcast"
	"github.com/user/incidentbot/internal/store"
	"github.com/user/incidentbot/internal/types"
)

const admin = types.SenderID(100200300)

var scenarioInputs = []string{"01.01.2030", "12:00", "Segment A", "2", "PK100", "Derailment", "Minor damage", "Ivanov I.I."}

type memIncidents struct {
	mu    sync.Mutex
	saved []*types.Incident
	err   error
}

func (m *memIncidents) AddIncident(_ context.Context, inc *types.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	inc.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, inc)
	return nil
}

func (m *memIncidents) ListRecentIncidents(context.Context, int) ([]*types.Incident, error) {
	return nil, nil
}

type countingBroadcaster struct {
	calls []*types.Incident
	err   error
}

func (c *countingBroadcaster) Broadcast(_ context.Context, inc *types.Incident) error {
	c.calls = append(c.calls, inc)
	return c.err
}

func newTestEngine() (*Engine, *memIncidents, *countingBroadcaster) {
	inc := &memIncidents{}
	bc := &countingBroadcaster{}
	return New(NewSessions(), inc, bc, nil), inc, bc
}

func TestStatePrompts(t *testing.T) {
	assert.Equal(t, "", Idle.Prompt())
	assert.Equal(t, "📅 Дата (ДД.MM.ГГГГ):", WaitDate.Prompt())
	assert.Equal(t, FieldKmPk, WaitKmPk.Field())
	assert.Equal(t, "wait_chairman", WaitChairman.String())
	assert.Equal(t, Idle, WaitChairman.next())
}

func TestStartReturnsDatePrompt(t *testing.T) {
	e, _, _ := newTestEngine()

	assert.False(t, e.Active(admin))
	assert.Equal(t, WaitDate.Prompt(), e.Start(admin))
	assert.True(t, e.Active(admin))
	assert.Equal(t, WaitDate, e.Sessions().Get(admin).State)
}

func TestHandleIdleIsIgnored(t *testing.T) {
	e, inc, _ := newTestEngine()

	reply, handled, err := e.Handle(context.Background(), admin, "hello")
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, reply)
	assert.Empty(t, inc.saved)
}

func TestFullDialoguePromptsInOrder(t *testing.T) {
	e, inc, bc := newTestEngine()
	ctx := context.Background()
	e.Start(admin)

	wantPrompts := []string{
		WaitTime.Prompt(), WaitSegment.Prompt(), WaitTrack.Prompt(), WaitKmPk.Prompt(),
		WaitType.Prompt(), WaitDescription.Prompt(), WaitChairman.Prompt(), CompletedReply,
	}
	for i, in := range scenarioInputs {
		reply, handled, err := e.Handle(ctx, admin, "  "+in+"\n")
		require.NoError(t, err)
		require.True(t, handled)
		assert.Equal(t, wantPrompts[i], reply, "step %d", i)
	}

	require.Len(t, inc.saved, 1)
	got := inc.saved[0]
	assert.Equal(t, scenarioInputs, []string{got.Date, got.Time, got.Segment, got.Track, got.KmPk, got.IncidentType, got.Description, got.Chairman})
	require.Len(t, bc.calls, 1)
	assert.Same(t, got, bc.calls[0])
	assert.False(t, e.Active(admin), "session is cleared after completion")
}

func TestEmptyAnswersAreAccepted(t *testing.T) {
	e, inc, _ := newTestEngine()
	ctx := context.Background()
	e.Start(admin)

	for range scenarioInputs {
		_, handled, err := e.Handle(ctx, admin, "   ")
		require.NoError(t, err)
		require.True(t, handled)
	}
	require.Len(t, inc.saved, 1)
	assert.Equal(t, "", inc.saved[0].Chairman)
}

func TestRestartDiscardsPartialFields(t *testing.T) {
	e, inc, _ := newTestEngine()
	ctx := context.Background()

	e.Start(admin)
	for _, in := range []string{"stale date", "stale time", "stale segment"} {
		_, _, err := e.Handle(ctx, admin, in)
		require.NoError(t, err)
	}

	assert.Equal(t, WaitDate.Prompt(), e.Start(admin))
	sess := e.Sessions().Get(admin)
	assert.Equal(t, WaitDate, sess.State)
	assert.Empty(t, sess.Fields)

	for _, in := range scenarioInputs {
		_, _, err := e.Handle(ctx, admin, in)
		require.NoError(t, err)
	}
	require.Len(t, inc.saved, 1)
	assert.Equal(t, "01.01.2030", inc.saved[0].Date)
	assert.Equal(t, "Segment A", inc.saved[0].Segment)
}

func TestSessionsAreIndependentPerSender(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	other := types.SenderID(42)

	e.Start(admin)
	e.Start(other)
	_, _, err := e.Handle(ctx, admin, "01.01.2030")
	require.NoError(t, err)

	assert.Equal(t, WaitTime, e.Sessions().Get(admin).State)
	assert.Equal(t, WaitDate, e.Sessions().Get(other).State)
	assert.Equal(t, 2, e.Sessions().Len())
}

func TestStoreFailureKeepsSession(t *testing.T) {
	e, inc, bc := newTestEngine()
	inc.err = errors.New("disk I/O error")
	ctx := context.Background()
	e.Start(admin)

	var err error
	for _, in := range scenarioInputs {
		_, _, err = e.Handle(ctx, admin, in)
	}
	require.Error(t, err)
	assert.Empty(t, bc.calls, "nothing is broadcast when the record was not saved")
	assert.Equal(t, WaitChairman, e.Sessions().Get(admin).State)
}

func TestScenarioWithStoreAndBroadcast(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(store.Options{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.AddSubscriber(ctx, 111))

	sender := &capturingSender{}
	e := New(NewSessions(), s, broadcast.New(s, sender), nil)

	e.Start(admin)
	for _, in := range scenarioInputs {
		_, _, err := e.Handle(ctx, admin, in)
		require.NoError(t, err)
	}

	rows, err := s.ListRecentIncidents(ctx, 20)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ivanov I.I.", rows[0].Chairman)
	assert.Equal(t, "PK100", rows[0].KmPk)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(111), sender.sent[0].chatID)
	for _, in := range scenarioInputs {
		assert.True(t, strings.Contains(sender.sent[0].text, in), "notification should contain %q", in)
	}
}

type sentText struct {
	chatID int64
	text   string
}

type capturingSender struct {
	sent []sentText
}

func (c *capturingSender) SendText(_ context.Context, chatID int64, text string) error {
	c.sent = append(c.sent, sentText{chatID, text})
	return nil
}
