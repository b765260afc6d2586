package app

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/trilokanam-ux/trilokana-telegram-bot/core/logger"
	"github.com/trilokanam-ux/trilokana-telegram-bot/core/telegram/callbacks"
	"github.com/trilokanam-ux/trilokana-telegram-bot/core/telegram/helpers"
	"github.com/trilokanam-ux/trilokana-telegram-bot/core/telegram/keyboard"
	"github.com/trilokanam-ux/trilokana-telegram-bot/leads"
)

// InProgress implements router.Dialog.
func (a *App) InProgress(userID int64) bool {
	return a.engine.InProgress(userID)
}

// HandleText implements router.Dialog by feeding mid-dialogue text into the
// engine.
func (a *App) HandleText(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	return a.engine.Text(ctx, c.Sender().ID, c.Text())
}

// handleStart greets the user and offers the service categories as inline
// buttons. Each button carries the option index as payload.
func (a *App) handleStart(c tele.Context) error {
	opts := a.engine.Options()
	btns := make([]keyboard.InlineBtn, len(opts))
	for i, opt := range opts {
		btns[i] = keyboard.InlineBtn{
			Text:   opt,
			Unique: leads.CallbackOption,
			Data:   strconv.Itoa(i),
		}
	}
	markup := keyboard.InlineButtonsNPerRow(btns, 2)

	var b strings.Builder
	b.WriteString("Welcome to Trilokana Marketing!\n")
	if url := a.cfg.Leads.WebsiteURL; url != "" {
		b.WriteString("Visit us: " + url + "\n")
	}
	b.WriteString("\nPlease select a service:")

	return helpers.SendText(c, b.String(), &tele.SendOptions{ReplyMarkup: markup})
}

// handleCancel drops the active session, if any.
func (a *App) handleCancel(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	return a.engine.Cancel(ctx, c.Sender().ID)
}

// handleStats reports lead-capture counters. Admin only.
func (a *App) handleStats(c tele.Context) error {
	text := fmt.Sprintf("Active sessions: %d\nLeads submitted: %d\nSubmissions failed: %d",
		a.store.Active(), a.coord.Submitted(), a.coord.Failed())
	return helpers.SendText(c, text)
}

// handleFreeText routes text typed outside an active dialogue. A recognized
// option label starts a session; anything else yields guidance.
func (a *App) handleFreeText(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	return a.engine.Text(ctx, c.Sender().ID, c.Text())
}

// handleOptionCallback resolves an option button press into its canonical
// label and starts the dialogue.
func (a *App) handleOptionCallback(c tele.Context) error {
	ctx := helpers.BuildContext(c)

	opts := a.engine.Options()
	idx, err := callbacks.PayloadInt(c)
	if err != nil || idx < 0 || idx >= len(opts) {
		logger.Warn(ctx, "dialog", "option.bad_payload",
			slog.String("status", "skip"),
			slog.String("payload", callbacks.CallbackPayload(c)),
		)
		return nil
	}

	a.clearKeyboard(c)
	return a.engine.Option(ctx, c.Sender().ID, opts[idx])
}

// handleConfirmCallback resolves the confirm keyboard into a yes/no event.
func (a *App) handleConfirmCallback(c tele.Context) error {
	ctx := helpers.BuildContext(c)

	var yes bool
	switch callbacks.CallbackPayload(c) {
	case "yes":
		yes = true
	case "no":
		yes = false
	default:
		logger.Warn(ctx, "dialog", "confirm.bad_payload",
			slog.String("status", "skip"),
			slog.String("payload", callbacks.CallbackPayload(c)),
		)
		return nil
	}

	a.clearKeyboard(c)
	return a.engine.Confirm(ctx, c.Sender().ID, yes)
}

// clearKeyboard removes the inline keyboard from the pressed message so a
// stale keyboard cannot be pressed twice. Best effort.
func (a *App) clearKeyboard(c tele.Context) {
	msg := c.Message()
	if msg == nil {
		return
	}
	_, _ = c.Bot().EditReplyMarkup(msg, nil)
}
