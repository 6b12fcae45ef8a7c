// Package bot connects the monitor to Telegram: it delivers system
// notifications to a chat and accepts operator commands from allowed users.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pfwatch/internal/command"
	"pfwatch/internal/config"
	"pfwatch/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// FilterStore lists and toggles stored filter definitions.
type FilterStore interface {
	ListFilters(ctx context.Context) ([]model.FilterDef, error)
	SetFilterEnabled(ctx context.Context, name string, enabled bool) error
}

// Bot is the Telegram front end of the monitor.
type Bot struct {
	api     telegramAPI
	chatID  int64
	cfg     *config.Config
	filters FilterStore
	log     *slog.Logger

	commands chan<- command.Command
	stop     func()
}

// New creates a Bot for the token and chat configured in cfg.
func New(cfg *config.Config, filters FilterStore, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		chatID:  cfg.TelegramChatID,
		cfg:     cfg,
		filters: filters,
		log:     log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
// Monitor commands are forwarded to commands; a stop command calls stop.
func (b *Bot) Run(ctx context.Context, commands chan<- command.Command, stop func()) {
	b.commands = commands
	b.stop = stop

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if cb := update.CallbackQuery; cb != nil {
				if cb.From == nil || !b.cfg.IsUserAllowed(cb.From.ID) {
					continue
				}
				b.handleCallback(ctx, cb)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.From == nil || !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendNotification delivers a system notification to the configured chat.
func (b *Bot) SendNotification(text string) {
	b.SendMessage(b.chatID, text)
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.log.Debug("command", "cmd", msg.Command(), "args", msg.CommandArguments(), "chat_id", chatID)

	switch msg.Command() {
	case cmdFilters:
		b.handleFilters(ctx, chatID)
		return
	case cmdEnable:
		b.handleSetEnabled(ctx, chatID, msg.CommandArguments(), true)
		return
	case cmdDisable:
		b.handleSetEnabled(ctx, chatID, msg.CommandArguments(), false)
		return
	}

	cmd, err := command.Parse(msg.Text)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	switch cmd.Kind {
	case command.Help:
		b.handleHelp(chatID)
	case command.Stop:
		b.reply(chatID, "Stopping monitor.")
		if b.stop != nil {
			b.stop()
		}
	default:
		cmd.Reply = func(text string) { b.reply(chatID, text) }
		select {
		case b.commands <- cmd:
		case <-ctx.Done():
		}
	}
}
