package discord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/incidentbot/internal/delivery"
)

type sentMessage struct {
	channelID string
	content   string
}

type mockSession struct {
	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
}

func (m *mockSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, sentMessage{channelID: channelID, content: content})
	return &discordgo.Message{ID: "msg-1", ChannelID: channelID, Content: content}, nil
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Opts{ChannelID: "123"})
	assert.Error(t, err)
}

func TestDeliver(t *testing.T) {
	sess := &mockSession{}
	m, err := New(Opts{ChannelID: "999", Session: sess})
	require.NoError(t, err)

	require.NoError(t, m.Deliver(context.Background(), "discord:123", delivery.Notification{Text: "hello"}))
	require.NoError(t, m.Deliver(context.Background(), m.Target(), delivery.Notification{Text: "again"}))

	require.Len(t, sess.sent, 2)
	assert.Equal(t, sentMessage{channelID: "123", content: "hello"}, sess.sent[0])
	assert.Equal(t, "999", sess.sent[1].channelID)
}

func TestDeliverSplitsLongText(t *testing.T) {
	sess := &mockSession{}
	m, err := New(Opts{Session: sess})
	require.NoError(t, err)

	text := strings.Repeat("ж", 2500)
	require.NoError(t, m.Deliver(context.Background(), "discord:1", delivery.Notification{Text: text}))
	require.Len(t, sess.sent, 2)
	for _, s := range sess.sent {
		assert.LessOrEqual(t, utf8.RuneCountInString(s.content), maxMessageLen)
	}
	assert.Equal(t, text, sess.sent[0].content+sess.sent[1].content)
}

func TestDeliverError(t *testing.T) {
	m, err := New(Opts{Session: &mockSession{sendErr: errors.New("Missing Access")}})
	require.NoError(t, err)

	assert.Error(t, m.Deliver(context.Background(), "discord:1", delivery.Notification{Text: "x"}))
	assert.Error(t, m.Deliver(context.Background(), "discord:", delivery.Notification{Text: "x"}))
}
