package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"pfwatch/internal/command"
	"pfwatch/internal/config"
	"pfwatch/internal/model"
	"pfwatch/internal/storage"
)

// --- mocks ---

type sentMsg struct {
	ChatID int64
	Text   string
	Markup any
}

type mockAPI struct {
	mu      sync.Mutex
	sent    []sentMsg
	updates chan tgbotapi.Update
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.mu.Lock()
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text, Markup: msg.ReplyMarkup})
		m.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if m.updates == nil {
		m.updates = make(chan tgbotapi.Update)
	}
	return m.updates
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

func (m *mockAPI) all() []sentMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMsg(nil), m.sent...)
}

func (m *mockAPI) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

// --- helpers ---

func newTestBot(t *testing.T, cfg *config.Config) (*Bot, *mockAPI, *storage.SQLite) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if cfg == nil {
		cfg = &config.Config{TelegramChatID: 100}
	}
	api := &mockAPI{updates: make(chan tgbotapi.Update)}
	b := &Bot{
		api:     api,
		chatID:  cfg.TelegramChatID,
		cfg:     cfg,
		filters: store,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, api, store
}

func seedFilter(t *testing.T, store *storage.SQLite, name string, enabled bool) *model.FilterDef {
	t.Helper()
	f := &model.FilterDef{Name: name, Enabled: enabled, Condition: model.FilterCondition{Category: "HighEndDuty"}}
	if err := store.UpsertFilter(context.Background(), f); err != nil {
		t.Fatalf("seed filter: %v", err)
	}
	return f
}

func makeMsg(userID int64, text string) *tgbotapi.Message {
	cmd := strings.Fields(text)[0]
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: 100},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd)},
		},
	}
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("reply missing %q, got:\n%s", want, got)
	}
}

// --- handler tests ---

func TestSendNotification(t *testing.T) {
	b, api, _ := newTestBot(t, &config.Config{TelegramChatID: -100500})
	b.SendNotification("Found 2 listing(s)")

	want := []sentMsg{{ChatID: -100500, Text: "Found 2 listing(s)"}}
	if diff := cmp.Diff(want, api.all()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleHelp(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	b.handleHelp(100)
	requireContains(t, api.lastText(), "watch <id>")
	requireContains(t, api.lastText(), "/filters")
}

func TestHandleFilters(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleFilters(ctx, 100)
		requireContains(t, api.lastText(), "No filters stored")
	})

	t.Run("with toggle buttons", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		on := seedFilter(t, store, "high-end", true)
		off := seedFilter(t, store, "raids", false)

		b.handleFilters(ctx, 100)
		sent := api.all()
		if len(sent) != 1 {
			t.Fatalf("expected one message, got %d", len(sent))
		}
		requireContains(t, sent[0].Text, "✓ high-end")
		requireContains(t, sent[0].Text, "✗ raids")

		markup, ok := sent[0].Markup.(tgbotapi.InlineKeyboardMarkup)
		if !ok {
			t.Fatalf("expected inline keyboard, got %T", sent[0].Markup)
		}
		var data []string
		for _, row := range markup.InlineKeyboard {
			data = append(data, *row[0].CallbackData)
		}
		want := []string{fmt.Sprintf("disable:%d", on.ID), fmt.Sprintf("enable:%d", off.ID)}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Errorf("callback data mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestHandleSetEnabled(t *testing.T) {
	ctx := context.Background()

	t.Run("usage", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleSetEnabled(ctx, 100, "  ", true)
		requireContains(t, api.lastText(), "Usage: /enable")
	})

	t.Run("not found", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleSetEnabled(ctx, 100, "nope", false)
		requireContains(t, api.lastText(), `Filter "nope" not found`)
	})

	t.Run("disable", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		seedFilter(t, store, "high-end", true)
		b.handleSetEnabled(ctx, 100, "high-end", false)
		requireContains(t, api.lastText(), "disabled")

		got, err := store.GetFilter(ctx, "high-end")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Enabled {
			t.Error("filter should be disabled")
		}
	})
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("local commands", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		cases := []struct {
			text     string
			contains string
		}{
			{"/start", "Commands:"},
			{"/help", "Filter management"},
			{"/filters", "No filters stored"},
			{"/dance", "unknown command"},
			{"/watch abc", "invalid listing id"},
		}
		for _, tc := range cases {
			api.reset()
			b.handleCommand(ctx, makeMsg(1, tc.text))
			requireContains(t, api.lastText(), tc.contains)
		}
	})

	t.Run("monitor commands are forwarded with reply", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		out := make(chan command.Command, 1)
		b.commands = out

		b.handleCommand(ctx, makeMsg(1, "/watch 123456"))
		got := <-out
		if diff := cmp.Diff(command.Watch, got.Kind); diff != "" {
			t.Errorf("kind mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(int64(123456), got.ID); diff != "" {
			t.Errorf("id mismatch (-want +got):\n%s", diff)
		}
		got.Reply("watching listing 123456")
		requireContains(t, api.lastText(), "watching listing 123456")
	})

	t.Run("stop", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		stopped := false
		b.stop = func() { stopped = true }
		b.handleCommand(ctx, makeMsg(1, "/stop"))
		if !stopped {
			t.Error("expected stop to be called")
		}
		requireContains(t, api.lastText(), "Stopping")
	})
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()
	cbMsg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}}

	t.Run("invalid data format", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleCallback(ctx, &tgbotapi.CallbackQuery{ID: "cb1", Data: "nocolon", Message: cbMsg})
		if diff := cmp.Diff(0, len(api.all())); diff != "" {
			t.Errorf("expected no text messages (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleCallback(ctx, &tgbotapi.CallbackQuery{ID: "cb2", Data: "enable:abc", Message: cbMsg})
		if diff := cmp.Diff(0, len(api.all())); diff != "" {
			t.Errorf("expected no text messages (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown filter", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleCallback(ctx, &tgbotapi.CallbackQuery{ID: "cb3", Data: "enable:42", Message: cbMsg})
		requireContains(t, api.lastText(), "Filter #42 not found")
	})

	t.Run("enable toggles stored filter", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		f := seedFilter(t, store, "raids", false)
		b.handleCallback(ctx, &tgbotapi.CallbackQuery{ID: "cb4", Data: fmt.Sprintf("enable:%d", f.ID), Message: cbMsg})
		requireContains(t, api.lastText(), `Filter "raids" enabled`)

		enabled, err := store.ListEnabledFilters(ctx)
		if err != nil {
			t.Fatalf("list enabled: %v", err)
		}
		if diff := cmp.Diff(1, len(enabled)); diff != "" {
			t.Errorf("enabled count mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestRunAccessControl(t *testing.T) {
	b, api, _ := newTestBot(t, &config.Config{TelegramChatID: 100, AllowedUsers: []int64{7}})
	out := make(chan command.Command, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, out, func() {})
		close(done)
	}()

	api.updates <- tgbotapi.Update{Message: makeMsg(99, "/status")}
	api.updates <- tgbotapi.Update{Message: makeMsg(7, "/status")}

	select {
	case got := <-out:
		if diff := cmp.Diff(command.Status, got.Kind); diff != "" {
			t.Errorf("kind mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("allowed user's command was not forwarded")
	}

	cancel()
	<-done

	sent := api.all()
	if len(sent) != 1 || sent[0].Text != "Access denied." {
		t.Errorf("expected a single access denied reply, got %+v", sent)
	}
}
