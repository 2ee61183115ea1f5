package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/incidentbot/internal/delivery"
	"github.com/user/incidentbot/internal/gateway"
	"github.com/user/incidentbot/internal/types"
)

type published struct {
	subject string
	data    []byte
}

type mockConn struct {
	msgs       []published
	publishErr error
	drained    bool
}

func (m *mockConn) Publish(subj string, data []byte) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.msgs = append(m.msgs, published{subject: subj, data: data})
	return nil
}

func (m *mockConn) Drain() error {
	m.drained = true
	return nil
}

func TestDeliverPublishesJSON(t *testing.T) {
	nc := &mockConn{}
	p := newPublisher(nc, "")
	assert.Equal(t, "nats:"+DefaultSubject, p.Target())

	inc := &types.Incident{ID: 7, Segment: "Segment A", KmPk: "PK100"}
	require.NoError(t, p.Deliver(context.Background(), p.Target(), delivery.Notification{Incident: inc, Text: "body"}))

	require.Len(t, nc.msgs, 1)
	assert.Equal(t, DefaultSubject, nc.msgs[0].subject)

	var ev Event
	require.NoError(t, json.Unmarshal(nc.msgs[0].data, &ev))
	assert.Equal(t, int64(7), ev.Incident.ID)
	assert.Equal(t, "PK100", ev.Incident.KmPk)
	assert.Equal(t, "body", ev.Text)
	assert.False(t, ev.PublishedAt.IsZero())
}

func TestDeliverUsesTargetSubject(t *testing.T) {
	nc := &mockConn{}
	p := newPublisher(nc, "incidents.created")

	require.NoError(t, p.Deliver(context.Background(), "nats:ops.alerts", delivery.Notification{Text: "x"}))
	assert.Equal(t, "ops.alerts", nc.msgs[0].subject)
}

func TestDeliverError(t *testing.T) {
	p := newPublisher(&mockConn{publishErr: errors.New("nats: connection closed")}, "s")
	assert.Error(t, p.Deliver(context.Background(), "nats:s", delivery.Notification{}))
}

func TestClose(t *testing.T) {
	nc := &mockConn{}
	require.NoError(t, newPublisher(nc, "s").Close())
	assert.True(t, nc.drained)
}

func TestConnectGivesUpOnUnreachableServer(t *testing.T) {
	policy := &gateway.RetryPolicy{
		MaxAttempts:  2,
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   1,
		MaxDelay:     10 * time.Millisecond,
	}
	_, err := Connect(context.Background(), "nats://127.0.0.1:1", "s", policy)
	assert.Error(t, err)
}
