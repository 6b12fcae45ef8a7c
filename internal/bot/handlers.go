package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pfwatch/internal/command"
	"pfwatch/internal/model"
)

const (
	cmdFilters = "filters"
	cmdEnable  = "enable"
	cmdDisable = "disable"
)

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, command.HelpText+`

Filter management:
  /filters          list stored filters
  /enable <name>    enable a filter
  /disable <name>   disable a filter

Filter changes apply on the next start.`)
}

func (b *Bot) handleFilters(ctx context.Context, chatID int64) {
	filters, err := b.filters.ListFilters(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatFilterList(filters))
	if len(filters) > 0 {
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, f := range filters {
			label, action := "Disable "+f.Name, actionDisable
			if !f.Enabled {
				label, action = "Enable "+f.Name, actionEnable
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s:%d", action, f.ID)),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send filter list", "error", err)
	}
}

func (b *Bot) handleSetEnabled(ctx context.Context, chatID int64, name string, enabled bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		if enabled {
			b.reply(chatID, "Usage: /enable <name>")
		} else {
			b.reply(chatID, "Usage: /disable <name>")
		}
		return
	}
	b.setEnabled(ctx, chatID, name, enabled)
}

func (b *Bot) setEnabled(ctx context.Context, chatID int64, name string, enabled bool) {
	err := b.filters.SetFilterEnabled(ctx, name, enabled)
	switch {
	case errors.Is(err, model.ErrNotFound):
		b.reply(chatID, fmt.Sprintf("Filter %q not found.", name))
	case err != nil:
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
	default:
		b.log.Info("filter toggled", "name", name, "enabled", enabled, "chat_id", chatID)
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		b.reply(chatID, fmt.Sprintf("Filter %q %s. Restart the monitor to apply.", name, state))
	}
}

// FormatFilterList renders stored filters with their state.
func FormatFilterList(filters []model.FilterDef) string {
	if len(filters) == 0 {
		return "No filters stored."
	}
	var b strings.Builder
	b.WriteString("Filters:\n")
	for _, f := range filters {
		mark := "✓"
		if !f.Enabled {
			mark = "✗"
		}
		fmt.Fprintf(&b, "\n%s %s", mark, f.Name)
		if s := describeCondition(f.Condition); s != "" {
			fmt.Fprintf(&b, "\n   %s", s)
		}
	}
	return b.String()
}

func describeCondition(c model.FilterCondition) string {
	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+"="+v)
		}
	}
	add("category", c.Category)
	add("world", c.World)
	add("dc", c.Datacenter)
	add("search", c.Search)
	if len(c.Jobs) > 0 {
		add("jobs", fmt.Sprint(c.Jobs))
	}
	if len(c.Duties) > 0 {
		add("duty", fmt.Sprint(c.Duties))
	}
	if len(c.ExcludeJobs) > 0 {
		add("exclude", fmt.Sprint(c.ExcludeJobs))
	}
	if c.MinSlotsAvailable != nil {
		add("min_free", fmt.Sprint(*c.MinSlotsAvailable))
	}
	if c.MaxSlotsFilled != nil {
		add("max_filled", fmt.Sprint(*c.MaxSlotsFilled))
	}
	if c.BeginnersWelcome != nil {
		add("beginners", fmt.Sprint(*c.BeginnersWelcome))
	}
	add("keywords", strings.TrimSpace(c.Keywords))
	return strings.Join(parts, ", ")
}
