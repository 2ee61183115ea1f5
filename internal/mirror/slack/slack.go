// Package slack mirrors incident notifications into a Slack channel.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/user/incidentbot/internal/delivery"
)

// Prefix is the delivery target prefix handled by this package.
const Prefix = "slack:"

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Mirror posts notifications with a bot token.
type Mirror struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Mirror.
type Opts struct {
	BotToken  string // xoxb-... bot token
	ChannelID string // used when the target carries no channel
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack mirror.
func New(opts Opts) (*Mirror, error) {
	m := &Mirror{client: opts.Client, channelID: opts.ChannelID}
	if m.client == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("slack: bot token is required")
		}
		m.client = slackapi.New(opts.BotToken)
	}
	return m, nil
}

// Target returns the delivery target for the configured channel.
func (m *Mirror) Target() string {
	return Prefix + m.channelID
}

// Deliver implements delivery.Handler.
func (m *Mirror) Deliver(_ context.Context, target string, n delivery.Notification) error {
	channel := delivery.TargetName(target)
	if channel == "" {
		channel = m.channelID
	}
	if channel == "" {
		return fmt.Errorf("slack: no channel for target %q", target)
	}
	if _, _, err := m.client.PostMessage(channel, slackapi.MsgOptionText(n.Text, false)); err != nil {
		return fmt.Errorf("slack: post to %s: %w", channel, err)
	}
	return nil
}
