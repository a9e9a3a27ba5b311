package channel

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/palproject/pal/internal/bus"
	"github.com/palproject/pal/internal/config"
)

type mockBot struct {
	sent    []tgbotapi.MessageConfig
	updates chan tgbotapi.Update
}

func newMockBot() *mockBot {
	return &mockBot{updates: make(chan tgbotapi.Update, 10)}
}

func (m *mockBot) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockBot) StopReceivingUpdates() {}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (m *mockBot) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "pal_test_bot"}
}

func TestBaseChannelIsAllowed(t *testing.T) {
	b := bus.NewMessageBus(10)

	open := NewBaseChannel("test", b, nil)
	if !open.IsAllowed("anyone") {
		t.Error("empty allow list should accept everyone")
	}

	restricted := NewBaseChannel("test", b, []string{"123", "456"})
	if !restricted.IsAllowed("123") {
		t.Error("listed sender should be allowed")
	}
	if restricted.IsAllowed("789") {
		t.Error("unlisted sender should be rejected")
	}
}

func TestNewTelegramChannelRequiresToken(t *testing.T) {
	b := bus.NewMessageBus(10)

	if _, err := NewTelegramChannel(config.TelegramConfig{}, b); err == nil {
		t.Fatal("expected error for empty token")
	}

	ch, err := NewTelegramChannel(config.TelegramConfig{Token: "test-token"}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Name() != "telegram" {
		t.Errorf("name = %q, want telegram", ch.Name())
	}
}

func TestTelegramSendChunksLongMessages(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, err := NewTelegramChannel(config.TelegramConfig{Token: "test-token"}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bot := newMockBot()
	ch.SetBot(bot)

	long := strings.Repeat("a", 4500) + "\n" + strings.Repeat("b", 100)
	err = ch.Send(bus.OutboundMessage{Channel: "telegram", ChatID: "42", Content: long, Kind: bus.KindReply})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(bot.sent) < 2 {
		t.Fatalf("expected message to be split, got %d sends", len(bot.sent))
	}
	for _, m := range bot.sent {
		if len(m.Text) > 4000 {
			t.Errorf("chunk length %d exceeds limit", len(m.Text))
		}
	}
}

func TestTelegramSendPrefixesSpontaneousLines(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, err := NewTelegramChannel(config.TelegramConfig{Token: "test-token"}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bot := newMockBot()
	ch.SetBot(bot)

	if err := ch.Send(bus.OutboundMessage{ChatID: "42", Content: "what is rain?", Kind: bus.KindThought}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := bot.sent[0].Text; !strings.HasPrefix(got, "...") {
		t.Errorf("thought should read as an aside, got %q", got)
	}

	bot.sent = nil
	if err := ch.Send(bus.OutboundMessage{ChatID: "42", Content: "Hi.", Kind: bus.KindReply}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := bot.sent[0].Text; strings.HasPrefix(got, "...") {
		t.Errorf("reply should not be prefixed, got %q", got)
	}
}

func TestTelegramSendInvalidChatID(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, err := NewTelegramChannel(config.TelegramConfig{Token: "test-token"}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch.SetBot(newMockBot())

	if err := ch.Send(bus.OutboundMessage{ChatID: "not-a-number", Content: "hi"}); err == nil {
		t.Error("expected error for non-numeric chat id")
	}
}

func TestManagerWiresEnabledChannels(t *testing.T) {
	b := bus.NewMessageBus(10)
	cfg := config.ChannelsConfig{
		Telegram: config.TelegramConfig{Enabled: true, Token: "test-token"},
		Web:      config.WebConfig{Enabled: true},
	}

	m, err := NewManager(cfg, b)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if m.Get("telegram") == nil {
		t.Error("telegram channel should be registered")
	}
	if m.Get("web") == nil {
		t.Error("web channel should be registered")
	}
	if len(m.EnabledChannels()) != 2 {
		t.Errorf("enabled = %v, want 2 channels", m.EnabledChannels())
	}
}

func TestManagerSkipsDisabledChannels(t *testing.T) {
	b := bus.NewMessageBus(10)
	m, err := NewManager(config.ChannelsConfig{}, b)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if len(m.EnabledChannels()) != 0 {
		t.Errorf("enabled = %v, want none", m.EnabledChannels())
	}
}
