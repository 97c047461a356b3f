package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	tele "gopkg.in/telebot.v4"
)

// Bot connects Handlers to Telegram through long polling.
type Bot struct {
	tb *tele.Bot
	h  *Handlers
}

// New creates the Telegram client and registers every command. Only
// userID writing in chatID is served.
func New(token string, userID, chatID int64, h *Handlers) (*Bot, error) {
	tb, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: config.PollerTimeout},
		OnError: func(err error, c tele.Context) {
			slog.Error(config.MsgBotHandlerFailed,
				config.LogKeyComponent, config.CompBot,
				config.LogKeyError, err,
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrBotInit, err)
	}

	b := &Bot{tb: tb, h: h}
	tb.Use(Restrict(userID, chatID, h.Unauthorized()))
	b.routes()
	return b, nil
}

func (b *Bot) routes() {
	help := func(c tele.Context) error { return c.Send(b.h.Help()) }
	b.tb.Handle(config.BotCmdStart, help)
	b.tb.Handle(config.BotCmdHelp, help)

	b.tb.Handle(config.BotCmdList, func(c tele.Context) error {
		return c.Send(b.h.List())
	})
	b.tb.Handle(config.BotCmdAdd, func(c tele.Context) error {
		return c.Send(b.h.StartAdd(c.Chat().ID))
	})
	b.tb.Handle(config.BotCmdEdit, func(c tele.Context) error {
		return c.Send(b.h.StartEdit(c.Chat().ID))
	})
	b.tb.Handle(config.BotCmdCancel, func(c tele.Context) error {
		return c.Send(b.h.Cancel(c.Chat().ID))
	})
	b.tb.Handle(tele.OnText, func(c tele.Context) error {
		return c.Send(b.h.Text(c.Chat().ID, c.Text()))
	})
}

// Notifier returns a reminder notifier sending through this bot.
func (b *Bot) Notifier() *Notifier {
	return NewNotifier(b.tb)
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.tb.Stop()
	}()

	slog.Info(config.MsgBotStart, config.LogKeyComponent, config.CompBot)
	b.tb.Start()
	slog.Info(config.MsgBotStop, config.LogKeyComponent, config.CompBot)
}

// Restrict rejects updates unless they come from userID in chatID.
func Restrict(userID, chatID int64, reply string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			var sender, chat int64
			if u := c.Sender(); u != nil {
				sender = u.ID
			}
			if ch := c.Chat(); ch != nil {
				chat = ch.ID
			}

			if !Authorized(sender, chat, userID, chatID) {
				slog.Warn(config.MsgUnauthorized,
					config.LogKeyComponent, config.CompBot,
					config.LogKeyUser, sender,
					config.LogKeyChat, chat,
				)
				return c.Send(reply)
			}
			return next(c)
		}
	}
}

// Authorized reports whether sender in chat is the configured owner.
func Authorized(sender, chat, userID, chatID int64) bool {
	return sender != 0 && chat != 0 && sender == userID && chat == chatID
}
