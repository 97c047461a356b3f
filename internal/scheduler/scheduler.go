// Package scheduler triggers the daily reminder dispatch at the configured
// send time and catches up on startup when that time already passed.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
	"github.com/tartampluch/go-birthday-bot/internal/store"
)

// Dispatcher delivers the reminders due on a date.
type Dispatcher interface {
	DispatchForDate(ctx context.Context, today time.Time) (int, error)
}

// ConfigLoader supplies the validated birthday config.
type ConfigLoader interface {
	Load() (engine.AppConfig, error)
}

// Scheduler owns the cron runner. The timezone and send time are read once
// when Run starts.
type Scheduler struct {
	dispatcher Dispatcher
	configs    ConfigLoader
	clock      engine.Clock

	// AfterDispatch, if set, runs after every dispatch attempt.
	AfterDispatch func(ctx context.Context)
}

// New returns a scheduler. A nil clock means wall time.
func New(d Dispatcher, configs ConfigLoader, clock engine.Clock) *Scheduler {
	if clock == nil {
		clock = engine.RealClock{}
	}
	return &Scheduler{dispatcher: d, configs: configs, clock: clock}
}

// Run schedules the daily job, performs the catch-up dispatch and blocks
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	cfg, err := s.configs.Load()
	if err != nil {
		return err
	}
	loc, hour, minute, err := sendSchedule(cfg)
	if err != nil {
		return err
	}

	c := cron.New(cron.WithLocation(loc))
	spec := fmt.Sprintf(config.FormatCronDaily, minute, hour)
	if _, err := c.AddFunc(spec, func() { s.RunOnce(ctx, loc) }); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCronSchedule, err)
	}

	slog.Info(config.MsgSchedulerStart,
		config.LogKeyComponent, config.CompScheduler,
		config.LogKeyKey, config.JobDailyName,
		config.LogKeySpec, spec,
		config.LogKeyTimezone, loc.String(),
	)

	s.CatchUp(ctx, loc, hour, minute)

	c.Start()
	<-ctx.Done()

	slog.Info(config.MsgSchedulerStop, config.LogKeyComponent, config.CompScheduler)
	<-c.Stop().Done()
	return nil
}

// CatchUp dispatches for today when the send time has already passed in
// loc. It reports whether a dispatch ran. Reminders already sent today are
// skipped by the dispatcher's ledger.
func (s *Scheduler) CatchUp(ctx context.Context, loc *time.Location, hour, minute int) bool {
	now := s.clock.Now().In(loc)
	sendAt := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)

	if now.Before(sendAt) {
		slog.Info(config.MsgCatchUpSkip,
			config.LogKeyComponent, config.CompScheduler,
			config.LogKeyValue, sendAt.Format(config.TimeFormatHHMM),
		)
		return false
	}

	slog.Info(config.MsgCatchUp,
		config.LogKeyComponent, config.CompScheduler,
		config.LogKeyValue, sendAt.Format(config.TimeFormatHHMM),
	)
	s.RunOnce(ctx, loc)
	return true
}

// RunOnce dispatches for the current date in loc. Failures are logged; the
// failed reminders are retried by the next run.
func (s *Scheduler) RunOnce(ctx context.Context, loc *time.Location) {
	today := engine.Today(s.clock, loc)

	sent, err := s.dispatcher.DispatchForDate(ctx, today)
	if err != nil {
		slog.Error(config.MsgJobFailed,
			config.LogKeyComponent, config.CompScheduler,
			config.LogKeyDate, today.Format(config.DateFormatISO),
			config.LogKeySent, sent,
			config.LogKeyError, err,
		)
	}

	if s.AfterDispatch != nil {
		s.AfterDispatch(ctx)
	}
}

// sendSchedule resolves the location and clock time of the daily send.
func sendSchedule(cfg engine.AppConfig) (*time.Location, int, int, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", config.ErrTimezone, err)
	}
	hour, minute, err := store.SendClock(cfg.DailySendTime)
	if err != nil {
		return nil, 0, 0, err
	}
	return loc, hour, minute, nil
}
