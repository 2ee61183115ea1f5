// Package bot classifies inbound chat messages into commands, admin menu
// buttons, and dialogue replies, and produces the replies to send back.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/user/incidentbot/internal/dialogue"
	"github.com/user/incidentbot/internal/message"
	"github.com/user/incidentbot/internal/metrics"
	"github.com/user/incidentbot/internal/types"
)

// Admin menu buttons. The texts are matched exactly.
const (
	ButtonNotify        = "📢 Заявить о происшествии"
	ButtonAddSubscriber = "➕ Добавить пользователя"
)

const (
	DefaultHistoryLimit = 20

	replyAdminMenu    = "Вы администратор. Выберите действие:"
	replyAddUsage     = "❗️ Использование: /add <user_id>"
	replyAddNotNumber = "❗️ ID должен быть числом."
	replyAddHint      = "Введите команду /add <user_id> для добавления пользователя."
	replyHistoryEmpty = "ℹ️ История оповещений пуста."
)

// Message is an inbound text message.
type Message struct {
	SenderID types.SenderID
	ChatID   int64
	Text     string
}

// Reply is one outgoing message in the sender's chat.
type Reply struct {
	Text  string
	Quote bool // reply to the inbound message
	Menu  bool // attach the admin keyboard
}

// Store is the part of the record store the command surface uses.
type Store interface {
	types.SubscriberStore
	types.IncidentStore
}

// Config holds the command surface settings.
type Config struct {
	AdminID      types.SenderID
	HistoryLimit int
	ChunkSize    int
}

// Handler routes messages. Privileged triggers from anyone but AdminID
// simply do not match. A zero AdminID makes nobody privileged.
type Handler struct {
	cfg     Config
	store   Store
	engine  *dialogue.Engine
	metrics *metrics.Metrics
}

// New creates a Handler. m may be nil.
func New(cfg Config, store Store, engine *dialogue.Engine, m *metrics.Metrics) *Handler {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = message.DefaultChunkSize
	}
	return &Handler{cfg: cfg, store: store, engine: engine, metrics: m}
}

// Handle processes one message and returns the replies to send, in order.
// A nil slice means the message produced no response.
func (h *Handler) Handle(ctx context.Context, msg Message) ([]Reply, error) {
	admin := h.cfg.AdminID != 0 && msg.SenderID == h.cfg.AdminID
	cmd, args, isCmd := parseCommand(msg.Text)

	switch {
	case isCmd && cmd == "start":
		h.metrics.Inbound("command")
		return h.start(msg, admin), nil
	case isCmd && cmd == "add" && admin:
		h.metrics.Inbound("command")
		return h.add(ctx, args)
	case msg.Text == ButtonNotify && admin:
		h.metrics.Inbound("button")
		return []Reply{{Text: h.engine.Start(msg.SenderID)}}, nil
	case msg.Text == ButtonAddSubscriber && admin:
		h.metrics.Inbound("button")
		return []Reply{{Text: replyAddHint}}, nil
	case isCmd && cmd == "history" && admin:
		h.metrics.Inbound("command")
		return h.history(ctx)
	case isCmd && cmd == "notify" && admin:
		h.metrics.Inbound("command")
		return []Reply{{Text: h.engine.Start(msg.SenderID), Quote: true}}, nil
	}

	reply, handled, err := h.engine.Handle(ctx, msg.SenderID, msg.Text)
	if err != nil {
		return nil, err
	}
	if !handled {
		h.metrics.Inbound("ignored")
		slog.Debug("message ignored", "sender_id", int64(msg.SenderID))
		return nil, nil
	}
	h.metrics.Inbound("dialogue")
	return []Reply{{Text: reply, Quote: true}}, nil
}

func (h *Handler) start(msg Message, admin bool) []Reply {
	replies := []Reply{{
		Text:  fmt.Sprintf("Здравствуйте, это чат-бот для уведомления о происшествиях. Ваш ID: %d.", int64(msg.SenderID)),
		Quote: true,
	}}
	if admin {
		replies = append(replies, Reply{Text: replyAdminMenu, Menu: true})
	}
	return replies
}

func (h *Handler) add(ctx context.Context, args string) ([]Reply, error) {
	if args == "" {
		return []Reply{{Text: replyAddUsage, Quote: true}}, nil
	}
	id, ok := parseSubscriberID(args)
	if !ok {
		return []Reply{{Text: replyAddNotNumber, Quote: true}}, nil
	}
	if err := h.store.AddSubscriber(ctx, id); err != nil {
		return nil, err
	}
	slog.Info("subscriber added", "user_id", id)
	return []Reply{{Text: fmt.Sprintf("✅ Пользователь с ID %d подписан на оповещения.", id), Quote: true}}, nil
}

func (h *Handler) history(ctx context.Context) ([]Reply, error) {
	incidents, err := h.store.ListRecentIncidents(ctx, h.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	if len(incidents) == 0 {
		return []Reply{{Text: replyHistoryEmpty, Quote: true}}, nil
	}
	chunks := message.History(incidents, h.cfg.ChunkSize)
	replies := make([]Reply, 0, len(chunks))
	for _, c := range chunks {
		replies = append(replies, Reply{Text: c, Quote: true})
	}
	return replies, nil
}

// parseCommand splits "/cmd@bot args" into ("cmd", "args", true).
func parseCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	body := strings.TrimSpace(text[1:])
	head, rest := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		head, rest = body[:i], body[i:]
	}
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	if head == "" {
		return "", "", false
	}
	return head, strings.TrimSpace(rest), true
}

// parseSubscriberID accepts only unsigned decimal digits.
func parseSubscriberID(s string) (int64, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
