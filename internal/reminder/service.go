// Package reminder decides which birthday reminders are due on a date and
// delivers each of them exactly once.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
	"github.com/tartampluch/go-birthday-bot/internal/ledger"
)

// Notifier delivers a message to a destination (a chat id for Telegram).
type Notifier interface {
	Notify(ctx context.Context, destination, text string) error
}

// ConfigLoader supplies the validated birthday config.
type ConfigLoader interface {
	Load() (engine.AppConfig, error)
}

// IDAssigner resolves and persists durable person ids, in record order.
type IDAssigner interface {
	AssignAndPersist(records []engine.Record) ([]string, error)
}

// StateStore persists the sent ledger. Lock excludes other processes
// for the duration of a dispatch.
type StateStore interface {
	Lock(ctx context.Context) (func(), error)
	Load() (*ledger.State, error)
	Save(state *ledger.State) error
}

// DueReminder is one reminder to deliver today.
type DueReminder struct {
	PersonID   string
	Name       string
	DaysUntil  int
	Occurrence time.Time

	// Age is only meaningful when HasAge is set.
	Age    int
	HasAge bool
}

// Deps wires a Service to its collaborators.
type Deps struct {
	Config      ConfigLoader
	Identities  IDAssigner
	Ledger      StateStore
	Notifier    Notifier
	Renderer    *Renderer
	Destination string
}

// Service runs dispatches. Calls are serialized: a scheduled run and a
// startup catch-up never compute their due sets from the same stale ledger.
type Service struct {
	mu   sync.Mutex
	deps Deps
}

// NewService returns a Service using deps.
func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// DispatchForDate delivers every reminder due on today and returns how many
// were sent. A reminder is marked sent only after the notifier accepted it;
// failures are returned as joined *DeliveryError values after the remaining
// reminders have been attempted. The ledger is saved before returning, even
// when nothing was due, so pruning is persisted.
func (s *Service) DispatchForDate(ctx context.Context, today time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.deps.Ledger.Lock(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrDispatch, err)
	}
	defer unlock()

	started := time.Now()
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompReminder),
		slog.String(config.LogKeyDate, today.Format(config.DateFormatISO)),
	)
	log.Debug(config.MsgDispatchStart)

	due, state, err := s.collect(today)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrDispatch, err)
	}

	var errs []error
	sent := 0
	for _, d := range due {
		if err := s.deliver(ctx, d); err != nil {
			log.Warn(config.MsgReminderFailed,
				config.LogKeyPerson, d.PersonID,
				config.LogKeyOffset, d.DaysUntil,
				config.LogKeyError, err,
			)
			errs = append(errs, &DeliveryError{PersonID: d.PersonID, Name: d.Name, Date: today, Offset: d.DaysUntil, Err: err})
			continue
		}

		state.Mark(ledger.DedupeKey(today, d.PersonID, d.DaysUntil))
		sent++
		log.Info(config.MsgReminderSent,
			config.LogKeyPerson, d.PersonID,
			config.LogKeyOffset, d.DaysUntil,
		)
	}

	if err := s.deps.Ledger.Save(state); err != nil {
		errs = append(errs, err)
	}

	log.Info(config.MsgDispatchDone,
		config.LogKeyDue, len(due),
		config.LogKeySent, sent,
		config.LogKeyFailed, len(due)-sent,
		config.LogKeyDuration, time.Since(started).Milliseconds(),
	)
	return sent, errors.Join(errs...)
}

// DueReminders previews what DispatchForDate would send on today without
// delivering anything or touching the ledger file.
func (s *Service) DueReminders(today time.Time) ([]DueReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due, _, err := s.collect(today)
	return due, err
}

func (s *Service) collect(today time.Time) ([]DueReminder, *ledger.State, error) {
	cfg, err := s.deps.Config.Load()
	if err != nil {
		return nil, nil, err
	}
	ids, err := s.deps.Identities.AssignAndPersist(cfg.Birthdays)
	if err != nil {
		return nil, nil, err
	}
	state, err := s.deps.Ledger.Load()
	if err != nil {
		return nil, nil, err
	}
	state.Prune(today, config.RetentionDays)

	due, err := Due(cfg, ids, state, today)
	if err != nil {
		return nil, nil, err
	}
	return due, state, nil
}

func (s *Service) deliver(ctx context.Context, d DueReminder) error {
	text, err := s.deps.Renderer.Render(d)
	if err != nil {
		return err
	}
	return s.deps.Notifier.Notify(ctx, s.deps.Destination, text)
}

// Due computes the reminders owed on today: records whose days-until value
// is one of their offsets and whose dedupe key is not yet in state. The
// result is ordered by days until, then case-insensitive name.
func Due(cfg engine.AppConfig, ids []string, state *ledger.State, today time.Time) ([]DueReminder, error) {
	if len(ids) != len(cfg.Birthdays) {
		return nil, fmt.Errorf("%s: %d ids for %d birthdays", config.ErrDispatch, len(ids), len(cfg.Birthdays))
	}

	var due []DueReminder
	for i, rec := range cfg.Birthdays {
		days, err := engine.DaysUntil(rec, today, cfg.LeapDayRule)
		if err != nil {
			return nil, err
		}
		if !rec.HasOffset(days) {
			continue
		}
		if state.Has(ledger.DedupeKey(today, ids[i], days)) {
			slog.Debug(config.MsgReminderSkip,
				config.LogKeyComponent, config.CompReminder,
				config.LogKeyPerson, ids[i],
				config.LogKeyOffset, days,
			)
			continue
		}

		next, err := engine.NextOccurrence(rec, today, cfg.LeapDayRule)
		if err != nil {
			return nil, err
		}
		age, hasAge := engine.TurningAge(rec, next)
		due = append(due, DueReminder{
			PersonID:   ids[i],
			Name:       rec.Name,
			DaysUntil:  days,
			Occurrence: next,
			Age:        age,
			HasAge:     hasAge,
		})
	}

	sort.SliceStable(due, func(a, b int) bool {
		if due[a].DaysUntil != due[b].DaysUntil {
			return due[a].DaysUntil < due[b].DaysUntil
		}
		return strings.ToLower(due[a].Name) < strings.ToLower(due[b].Name)
	})
	return due, nil
}
