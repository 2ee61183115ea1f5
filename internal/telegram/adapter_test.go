package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/incidentbot/internal/bot"
	"github.com/user/incidentbot/internal/broadcast"
	"github.com/user/incidentbot/internal/dialogue"
	"github.com/user/incidentbot/internal/gateway"
	"github.com/user/incidentbot/internal/store"
	"github.com/user/incidentbot/internal/types"
)

const adminID = 100200300

type fakeAPI struct {
	updates chan tgbotapi.Update
	sent    chan tgbotapi.MessageConfig
	failFor map[int64]bool
	// failPart makes the n-th message (1-based) to a chat fail.
	failPart map[int64]int
	count    map[int64]int
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		updates:  make(chan tgbotapi.Update, 16),
		sent:     make(chan tgbotapi.MessageConfig, 64),
		failFor:  make(map[int64]bool),
		failPart: make(map[int64]int),
		count:    make(map[int64]int),
	}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	f.count[msg.ChatID]++
	if f.failFor[msg.ChatID] || f.failPart[msg.ChatID] == f.count[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
	}
	f.sent <- msg
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() { f.stopped = true }

func textUpdate(from int64, messageID int, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: messageID,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}}
}

func TestInboundFromUpdate(t *testing.T) {
	msg := inboundFromUpdate(textUpdate(42, 7, "/start"))
	if msg == nil {
		t.Fatal("expected message")
	}
	if msg.SenderID != 42 || msg.ChatID != 42 || msg.MessageID != 7 || msg.Source != "telegram" {
		t.Errorf("unexpected message %+v", msg)
	}

	if inboundFromUpdate(tgbotapi.Update{}) != nil {
		t.Error("expected nil for update without message")
	}
	photo := textUpdate(42, 8, "")
	if inboundFromUpdate(photo) != nil {
		t.Error("expected nil for non-text message")
	}
}

func TestSendTextSplitsLongMessages(t *testing.T) {
	api := newFakeAPI()
	a := &Adapter{api: api}

	if err := a.SendText(context.Background(), 111, strings.Repeat("a", 5000)); err != nil {
		t.Fatal(err)
	}
	if len(api.sent) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(api.sent))
	}
}

func TestSendTextCyrillicFitsOneMessage(t *testing.T) {
	api := newFakeAPI()
	a := &Adapter{api: api}

	if err := a.SendText(context.Background(), 111, strings.Repeat("ж", 4000)); err != nil {
		t.Fatal(err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected 1 part, got %d", len(api.sent))
	}
}

func TestSendTextStopsAfterFailedPart(t *testing.T) {
	api := newFakeAPI()
	api.failPart[333] = 2
	a := &Adapter{api: api}

	err := a.SendText(context.Background(), 333, strings.Repeat("a", 9000))
	if err == nil {
		t.Fatal("expected error from second part")
	}
	// First part delivered, second failed, third never attempted.
	if len(api.sent) != 1 {
		t.Errorf("expected 1 delivered part, got %d", len(api.sent))
	}
	if api.count[333] != 2 {
		t.Errorf("expected 2 attempts, got %d", api.count[333])
	}
}

func TestSendTextError(t *testing.T) {
	api := newFakeAPI()
	api.failFor[222] = true
	a := &Adapter{api: api}

	if err := a.SendText(context.Background(), 222, "hi"); err == nil {
		t.Fatal("expected error for blocked chat")
	}
}

func TestAdminKeyboard(t *testing.T) {
	kb := adminKeyboard()
	if !kb.ResizeKeyboard || kb.OneTimeKeyboard {
		t.Error("expected resizable persistent keyboard")
	}
	if len(kb.Keyboard) != 2 || kb.Keyboard[0][0].Text != bot.ButtonNotify || kb.Keyboard[1][0].Text != bot.ButtonAddSubscriber {
		t.Errorf("unexpected keyboard layout %+v", kb.Keyboard)
	}
}

func TestEndToEndThroughGateway(t *testing.T) {
	s, err := store.Open(store.Options{DSN: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	api := newFakeAPI()
	gw := gateway.New()
	a := &Adapter{api: api, gateway: gw}

	engine := dialogue.New(dialogue.NewSessions(), s, broadcast.New(s, a), nil)
	h := bot.New(bot.Config{AdminID: adminID}, s, engine, nil)
	gw.Queue.SetProcessor(a.Processor(h))

	ctx, cancel := context.WithCancel(context.Background())
	gw.Start(ctx)
	defer gw.Stop()
	done := make(chan struct{})
	go func() {
		a.Start(ctx)
		close(done)
	}()

	api.updates <- textUpdate(adminID, 1, "/start")
	api.updates <- textUpdate(adminID, 2, "/add 111")
	api.updates <- textUpdate(adminID, 3, "/notify")
	for i, in := range []string{"01.01.2030", "12:00", "Segment A", "2", "PK100", "Derailment", "Minor damage", "Ivanov I.I."} {
		api.updates <- textUpdate(adminID, 4+i, in)
	}

	// 2 for /start, 1 for /add, 1 for /notify, 8 dialogue replies, 1 broadcast
	var got []tgbotapi.MessageConfig
	timeout := time.After(3 * time.Second)
	for len(got) < 13 {
		select {
		case m := <-api.sent:
			got = append(got, m)
		case <-timeout:
			t.Fatalf("timed out after %d messages", len(got))
		}
	}
	cancel()
	<-done

	if got[0].ReplyToMessageID != 1 {
		t.Errorf("expected greeting to quote message 1, got %d", got[0].ReplyToMessageID)
	}
	if _, ok := got[1].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup); !ok {
		t.Errorf("expected admin keyboard on second reply, got %T", got[1].ReplyMarkup)
	}

	var broadcastMsg *tgbotapi.MessageConfig
	for i := range got {
		if got[i].ChatID == 111 {
			broadcastMsg = &got[i]
		}
	}
	if broadcastMsg == nil {
		t.Fatal("expected a broadcast to subscriber 111")
	}
	if !strings.Contains(broadcastMsg.Text, "Ivanov I.I.") {
		t.Errorf("broadcast text missing chairman: %q", broadcastMsg.Text)
	}
	if last := got[len(got)-1]; last.Text != dialogue.CompletedReply {
		t.Errorf("expected completion reply last, got %q", last.Text)
	}

	rows, err := s.ListRecentIncidents(context.Background(), 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Segment != "Segment A" {
		t.Errorf("unexpected stored incidents %+v", rows)
	}
	if !api.stopped {
		t.Error("expected polling to stop on cancel")
	}
}

var _ types.Sender = (*Adapter)(nil)
