package app

import (
	"context"
	"errors"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/trilokanam-ux/trilokana-telegram-bot/core/telegram/keyboard"
	"github.com/trilokanam-ux/trilokana-telegram-bot/core/telegram/sender"
	"github.com/trilokanam-ux/trilokana-telegram-bot/leads"
)

// telegramGateway implements leads.Gateway on top of the bot instance and
// the async outbound dispatcher. The bot is attached once polling starts;
// until then sends fail fast.
type telegramGateway struct {
	bot  atomic.Pointer[tele.Bot]
	disp *sender.Dispatcher
}

func newTelegramGateway(disp *sender.Dispatcher) *telegramGateway {
	return &telegramGateway{disp: disp}
}

func (g *telegramGateway) attach(b *tele.Bot) {
	g.bot.Store(b)
}

func (g *telegramGateway) SendText(ctx context.Context, userID int64, text string) error {
	return g.send(ctx, "send.text", func(b *tele.Bot) error {
		_, err := b.Send(&tele.User{ID: userID}, text)
		return err
	})
}

func (g *telegramGateway) SendChoices(ctx context.Context, userID int64, text string, choices []leads.Choice) error {
	btns := make([]keyboard.InlineBtn, len(choices))
	for i, ch := range choices {
		btns[i] = keyboard.InlineBtn{Text: ch.Label, Unique: ch.Key, Data: ch.Data}
	}
	markup := keyboard.InlineButtonsNPerRow(btns, 2)
	return g.send(ctx, "send.choices", func(b *tele.Bot) error {
		_, err := b.Send(&tele.User{ID: userID}, text, markup)
		return err
	})
}

func (g *telegramGateway) send(ctx context.Context, action string, fn func(*tele.Bot) error) error {
	b := g.bot.Load()
	if b == nil {
		return errors.New("app: telegram bot not attached")
	}
	run := func() error { return fn(b) }
	if g.disp == nil {
		return run()
	}
	if err := g.disp.Enqueue(ctx, action, "sendMessage", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			return run()
		}
		return err
	}
	return nil
}
