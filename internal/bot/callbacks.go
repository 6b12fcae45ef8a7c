package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	actionEnable  = "enable"
	actionDisable = "disable"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, idStr, ok := strings.Cut(data, ":")
	if !ok {
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return
	}

	b.log.Info("callback", "action", action, "id", id, "chat_id", chatID)

	if action != actionEnable && action != actionDisable {
		return
	}

	filters, err := b.filters.ListFilters(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	for _, f := range filters {
		if f.ID == id {
			b.setEnabled(ctx, chatID, f.Name, action == actionEnable)
			return
		}
	}
	b.reply(chatID, fmt.Sprintf("Filter #%d not found.", id))
}
