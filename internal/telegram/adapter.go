package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/incidentbot/internal/bot"
	"github.com/user/incidentbot/internal/gateway"
	"github.com/user/incidentbot/internal/message"
	"github.com/user/incidentbot/internal/types"
)

const source = "telegram"

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Adapter bridges Telegram to the gateway and delivers outgoing text.
type Adapter struct {
	api     botAPI
	gateway *gateway.Gateway
}

// New creates a Telegram adapter authenticated with token.
func New(token string, gw *gateway.Gateway) (*Adapter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	slog.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Adapter{api: api, gateway: gw}, nil
}

// Start long-polls Telegram and enqueues every text message until ctx ends.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			msg := inboundFromUpdate(update)
			if msg == nil {
				continue
			}
			if err := a.gateway.HandleInbound(msg); err != nil {
				slog.Error("enqueue inbound message", "sender_id", int64(msg.SenderID), "error", err)
			}
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			return
		}
	}
}

// inboundFromUpdate returns nil for anything but a user's text message.
func inboundFromUpdate(update tgbotapi.Update) *types.InboundMessage {
	m := update.Message
	if m == nil || m.Text == "" || m.From == nil || m.Chat == nil {
		return nil
	}
	return &types.InboundMessage{
		Source:    source,
		SenderID:  types.SenderID(m.From.ID),
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
	}
}

// Processor returns the gateway processor that runs h for each message and
// sends its replies back to the originating chat.
func (a *Adapter) Processor(h *bot.Handler) gateway.Processor {
	return func(run *gateway.Run) error {
		in := run.Message
		replies, err := h.Handle(run.Ctx, bot.Message{
			SenderID: in.SenderID,
			ChatID:   in.ChatID,
			Text:     in.Text,
		})
		if err != nil {
			return err
		}
		for _, r := range replies {
			if err := a.reply(in, r); err != nil {
				slog.Warn("send reply failed", "chat_id", in.ChatID, "error", err)
			}
		}
		return nil
	}
}

func (a *Adapter) reply(in *types.InboundMessage, r bot.Reply) error {
	for i, part := range message.Split(r.Text, message.MaxTelegramMessage) {
		msg := tgbotapi.NewMessage(in.ChatID, part)
		if r.Quote && i == 0 {
			msg.ReplyToMessageID = in.MessageID
		}
		if r.Menu {
			msg.ReplyMarkup = adminKeyboard()
		}
		if _, err := a.api.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// SendText delivers text to chatID, splitting it at the Telegram size limit.
// Each part is sent once and sending stops at the first failed part, so a
// failure after the first part leaves the chat with a partial message.
// Incident notifications fit in a single part unless answers are very long.
func (a *Adapter) SendText(_ context.Context, chatID int64, text string) error {
	for _, part := range message.Split(text, message.MaxTelegramMessage) {
		if _, err := a.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			return fmt.Errorf("send to %d: %w", chatID, err)
		}
	}
	return nil
}

func adminKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(bot.ButtonNotify)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(bot.ButtonAddSubscriber)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}
