package channel

import (
	"errors"
	"net/http"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bahromoov/aytchi/internal/bus"
	"github.com/bahromoov/aytchi/internal/config"
)

func TestBaseChannel_Name(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch := NewBaseChannel("test", b, nil)
	if ch.Name() != "test" {
		t.Errorf("Name = %q, want test", ch.Name())
	}
}

func TestBaseChannel_IsAllowed(t *testing.T) {
	b := bus.NewMessageBus(10)

	open := NewBaseChannel("test", b, nil)
	if !open.IsAllowed("anyone") {
		t.Error("should allow anyone when allowFrom is empty")
	}

	restricted := NewBaseChannel("test", b, []string{"user1", "user2"})
	if !restricted.IsAllowed("user1") {
		t.Error("should allow user1")
	}
	if restricted.IsAllowed("user3") {
		t.Error("should reject user3")
	}
}

func TestNewTelegramChannel_NoToken(t *testing.T) {
	b := bus.NewMessageBus(10)
	if _, err := NewTelegramChannel(config.TelegramConfig{}, b); err == nil {
		t.Error("expected error for empty token")
	}
}

// fakeBot implements TelegramBot for tests.
type fakeBot struct {
	self     tgbotapi.User
	sent     []tgbotapi.MessageConfig
	actions  []tgbotapi.ChatActionConfig
	sendErr  error
	sendErrs []error // consumed one per Send when set
}

func (f *fakeBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeBot) StopReceivingUpdates() {}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return tgbotapi.Message{}, err
	}
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if action, ok := c.(tgbotapi.ChatActionConfig); ok {
		f.actions = append(f.actions, action)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetSelf() tgbotapi.User {
	return f.self
}

func newFakeChannel(t *testing.T, bot *fakeBot) (*TelegramChannel, *bus.MessageBus) {
	t.Helper()
	b := bus.NewMessageBus(10)
	ch, err := NewTelegramChannelWithFactory(config.TelegramConfig{Token: "fake"}, b, func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		return bot, nil
	})
	if err != nil {
		t.Fatalf("NewTelegramChannelWithFactory error: %v", err)
	}
	ch.SetBot(bot)
	return ch, b
}

func TestHandleMessage_PopulatesInbound(t *testing.T) {
	bot := &fakeBot{self: tgbotapi.User{ID: 99, UserName: "aytchi_bot"}}
	ch, b := newFakeChannel(t, bot)

	ch.handleMessage(&tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: 42, UserName: "user", IsBot: false},
		Chat:      &tgbotapi.Chat{ID: 42, Type: "private"},
		Date:      1700000000,
		Text:      "Бахром, привет",
		ReplyToMessage: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 99},
		},
	})

	select {
	case msg := <-b.Inbound:
		if msg.SenderID != "42" || msg.ChatID != "42" {
			t.Errorf("ids = %s/%s, want 42/42", msg.SenderID, msg.ChatID)
		}
		if !msg.IsPrivate {
			t.Error("IsPrivate = false for private chat")
		}
		if msg.FromSelf || msg.FromBot || msg.ViaBot {
			t.Error("flags set for a plain human message")
		}
		if !msg.ReplyToSelf {
			t.Error("ReplyToSelf = false for reply to own message")
		}
		if msg.MessageID != 7 {
			t.Errorf("MessageID = %d, want 7", msg.MessageID)
		}
	default:
		t.Fatal("no inbound message published")
	}
}

func TestHandleMessage_BotFlags(t *testing.T) {
	bot := &fakeBot{self: tgbotapi.User{ID: 99}}
	ch, b := newFakeChannel(t, bot)

	ch.handleMessage(&tgbotapi.Message{
		From:   &tgbotapi.User{ID: 50, IsBot: true},
		ViaBot: &tgbotapi.User{ID: 51},
		Chat:   &tgbotapi.Chat{ID: 50, Type: "group"},
		Text:   "automated",
	})

	msg := <-b.Inbound
	if !msg.FromBot || !msg.ViaBot {
		t.Error("bot flags not propagated")
	}
	if msg.IsPrivate {
		t.Error("group chat marked private")
	}
}

func TestHandleMessage_AllowList(t *testing.T) {
	bot := &fakeBot{self: tgbotapi.User{ID: 99}}
	b := bus.NewMessageBus(10)
	ch, err := NewTelegramChannelWithFactory(config.TelegramConfig{Token: "fake", AllowFrom: []string{"1"}}, b, func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		return bot, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	ch.SetBot(bot)

	ch.handleMessage(&tgbotapi.Message{
		From: &tgbotapi.User{ID: 2},
		Chat: &tgbotapi.Chat{ID: 2, Type: "private"},
		Text: "blocked",
	})

	select {
	case msg := <-b.Inbound:
		t.Fatalf("disallowed sender published: %+v", msg)
	default:
	}
}

func TestSend_ReplyTo(t *testing.T) {
	bot := &fakeBot{self: tgbotapi.User{ID: 99}}
	ch, _ := newFakeChannel(t, bot)

	err := ch.Send(bus.OutboundMessage{ChatID: "42", Content: "привет", ReplyTo: 7})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	if bot.sent[0].ReplyToMessageID != 7 {
		t.Errorf("ReplyToMessageID = %d, want 7", bot.sent[0].ReplyToMessageID)
	}
	if bot.sent[0].Text != "привет" {
		t.Errorf("Text = %q", bot.sent[0].Text)
	}
}

func TestSend_RateLimitMapped(t *testing.T) {
	bot := &fakeBot{
		self:    tgbotapi.User{ID: 99},
		sendErr: &tgbotapi.Error{Code: 429, Message: "Too Many Requests", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 3}},
	}
	ch, _ := newFakeChannel(t, bot)

	err := ch.Send(bus.OutboundMessage{ChatID: "42", Content: "привет"})
	var rl *RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want *RateLimitedError", err)
	}
	if rl.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %s, want 3s", rl.RetryAfter)
	}
}

func TestSendTyping(t *testing.T) {
	bot := &fakeBot{self: tgbotapi.User{ID: 99}}
	ch, _ := newFakeChannel(t, bot)

	if err := ch.SendTyping("42"); err != nil {
		t.Fatalf("SendTyping error: %v", err)
	}
	if len(bot.actions) != 1 {
		t.Fatalf("sent %d chat actions, want 1", len(bot.actions))
	}
	if bot.actions[0].Action != tgbotapi.ChatTyping {
		t.Errorf("action = %q, want typing", bot.actions[0].Action)
	}
}
