// Package discord mirrors incident notifications into a Discord channel
// through the REST API. No gateway connection is opened.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/user/incidentbot/internal/delivery"
	"github.com/user/incidentbot/internal/message"
)

const (
	// Prefix is the delivery target prefix handled by this package.
	Prefix = "discord:"

	// maxMessageLen is Discord's per-message content limit in characters.
	maxMessageLen = 2000
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Mirror posts notifications as a bot user.
type Mirror struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Mirror.
type Opts struct {
	BotToken  string
	ChannelID string // used when the target carries no channel
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord mirror.
func New(opts Opts) (*Mirror, error) {
	m := &Mirror{sess: opts.Session, channelID: opts.ChannelID}
	if m.sess == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("discord: bot token is required")
		}
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		m.sess = dg
	}
	return m, nil
}

// Target returns the delivery target for the configured channel.
func (m *Mirror) Target() string {
	return Prefix + m.channelID
}

// Deliver implements delivery.Handler. Long notifications are sent as
// several consecutive messages.
func (m *Mirror) Deliver(_ context.Context, target string, n delivery.Notification) error {
	channel := delivery.TargetName(target)
	if channel == "" {
		channel = m.channelID
	}
	if channel == "" {
		return fmt.Errorf("discord: no channel for target %q", target)
	}
	for _, part := range message.Split(n.Text, maxMessageLen) {
		if _, err := m.sess.ChannelMessageSend(channel, part); err != nil {
			return fmt.Errorf("discord: send to %s: %w", channel, err)
		}
	}
	return nil
}
