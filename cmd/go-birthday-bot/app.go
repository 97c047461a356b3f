package main

import (
	"context"
	"strconv"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
	"github.com/tartampluch/go-birthday-bot/internal/identity"
	"github.com/tartampluch/go-birthday-bot/internal/ledger"
	"github.com/tartampluch/go-birthday-bot/internal/locale"
	"github.com/tartampluch/go-birthday-bot/internal/reminder"
	"github.com/tartampluch/go-birthday-bot/internal/server"
	"github.com/tartampluch/go-birthday-bot/internal/settings"
	"github.com/tartampluch/go-birthday-bot/internal/store"
)

// app holds the stores shared by every command.
type app struct {
	settings settings.Settings
	tr       *locale.Translator
	configs  *store.ConfigStore
	ids      *identity.IndexStore
	ledger   *ledger.Store
}

// newApp loads the runtime settings (.env, environment, keyring) and opens
// the stores they point to.
func newApp() (*app, error) {
	settings.LoadDotEnv()
	s, err := settings.Load()
	if err != nil {
		return nil, err
	}

	return &app{
		settings: s,
		tr:       locale.New(s.Language),
		configs:  store.NewConfigStore(s.ConfigPath),
		ids:      identity.NewIndexStore(s.IndexPath, identity.Resolver{}),
		ledger:   ledger.NewStore(s.StatePath),
	}, nil
}

// service returns a dispatch service delivering to the allowed chat.
func (a *app) service(n reminder.Notifier) *reminder.Service {
	return reminder.NewService(reminder.Deps{
		Config:      a.configs,
		Identities:  a.ids,
		Ledger:      a.ledger,
		Notifier:    n,
		Renderer:    reminder.NewRenderer(a.tr),
		Destination: strconv.FormatInt(a.settings.AllowedChatID, 10),
	})
}

// today is the current civil date in the config's timezone.
func (a *app) today(cfg engine.AppConfig) (time.Time, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	return engine.Today(engine.RealClock{}, loc), nil
}

// feedSource renders the calendar feed from the current config.
func (a *app) feedSource() server.Source {
	gen := &engine.CalendarGenerator{
		Clock:         engine.RealClock{},
		FormatSummary: a.eventSummary,
	}

	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg, err := a.configs.Load()
		if err != nil {
			return nil, err
		}
		ids, err := a.ids.AssignAndPersist(cfg.Birthdays)
		if err != nil {
			return nil, err
		}
		today, err := a.today(cfg)
		if err != nil {
			return nil, err
		}
		return gen.Generate(cfg, ids, today)
	}
}

func (a *app) eventSummary(name string, age int, yearKnown bool) string {
	if yearKnown {
		return a.tr.T(config.TKeyEvtSummaryAge, map[string]any{"Name": name, "Age": age})
	}
	return a.tr.T(config.TKeyEvtSummary, map[string]any{"Name": name})
}
