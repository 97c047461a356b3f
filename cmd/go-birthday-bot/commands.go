package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-birthday-bot/internal/bot"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
	"github.com/tartampluch/go-birthday-bot/internal/scheduler"
	"github.com/tartampluch/go-birthday-bot/internal/server"
)

// newRootCmd builds the command tree. initLogging is called once the
// command to run is known: the long-running bot logs to stdout, one-shot
// commands log to stderr so their output stays clean.
func newRootCmd(initLogging func(w io.Writer, debug bool)) *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           config.CmdRoot,
		Short:         config.CmdDescRoot,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			var w io.Writer = os.Stderr
			if cmd.Name() == config.CmdRun {
				w = os.Stdout
			}
			initLogging(w, debug)
			logStartupInfo()
		},
	}
	root.SetVersionTemplate(versionText())
	root.PersistentFlags().BoolVar(&debug, config.FlagDebug, false, config.FlagDescDebug)

	root.AddCommand(runCmd())
	root.AddCommand(dispatchCmd())
	root.AddCommand(listCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(importCmd())
	return root
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdRun,
		Short: config.CmdDescRun,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return a.run(cmd.Context())
		},
	}
}

// run starts the bot, the scheduler and (when a port is set) the calendar
// feed, and blocks until ctx is cancelled or one of them fails.
func (a *app) run(parent context.Context) error {
	if err := a.settings.ValidateBot(); err != nil {
		return err
	}
	if _, err := a.configs.EnsureDefault(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var feed *server.FeedServer
	if a.settings.CalendarPort != "" {
		feed = server.NewFeedServer(a.settings.CalendarPort, a.feedSource())
	}
	refresh := func(ctx context.Context) {
		if feed != nil {
			_ = feed.Refresh(ctx) // Logged by the server; the previous feed stays up.
		}
	}

	handlers := bot.NewHandlers(bot.Deps{
		Store:      a.configs,
		Identities: a.ids,
		Translator: a.tr,
		OnChange:   func(engine.AppConfig) { refresh(ctx) },
	})
	b, err := bot.New(a.settings.BotToken, a.settings.AllowedUserID, a.settings.AllowedChatID, handlers)
	if err != nil {
		return err
	}

	sched := scheduler.New(a.service(b.Notifier()), a.configs, nil)
	sched.AfterDispatch = refresh
	refresh(ctx)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	spawn := func(f func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f(); err != nil {
				errs <- err
				cancel()
			}
		}()
	}

	spawn(func() error { b.Run(ctx); return nil })
	spawn(func() error { return sched.Run(ctx) })
	if feed != nil {
		spawn(func() error { return feed.Start(ctx) })
	}

	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	if err := errors.Join(all...); err != nil {
		return err
	}
	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return nil
}

func dispatchCmd() *cobra.Command {
	var date string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   config.CmdDispatch,
		Short: config.CmdDescDispatch,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			cfg, err := a.configs.Load()
			if err != nil {
				return err
			}

			today, err := dispatchDate(date)
			if err != nil {
				return err
			}
			if today.IsZero() {
				if today, err = a.today(cfg); err != nil {
					return err
				}
			}

			if dryRun {
				return a.preview(cmd.OutOrStdout(), today)
			}

			if err := a.settings.ValidateBot(); err != nil {
				return err
			}
			b, err := bot.New(a.settings.BotToken, a.settings.AllowedUserID, a.settings.AllowedChatID,
				bot.NewHandlers(bot.Deps{Store: a.configs, Identities: a.ids, Translator: a.tr}))
			if err != nil {
				return err
			}

			sent, err := a.service(b.Notifier()).DispatchForDate(cmd.Context(), today)
			fmt.Fprintf(cmd.OutOrStdout(), config.MsgDispatchOutput, sent, today.Format(config.DateFormatISO))
			return err
		},
	}

	cmd.Flags().StringVar(&date, config.FlagDate, "", config.FlagDescDate)
	cmd.Flags().BoolVar(&dryRun, config.FlagDryRun, false, config.FlagDescDryRun)
	return cmd
}

// dispatchDate parses the --date flag; an empty value yields the zero time.
func dispatchDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(config.DateFormatISO, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", config.ErrDateFlag, err)
	}
	return engine.Date(t.Year(), t.Month(), t.Day()), nil
}

// preview prints what a dispatch would send without sending or recording it.
func (a *app) preview(w io.Writer, today time.Time) error {
	due, err := a.service(nil).DueReminders(today)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, config.MsgDryRunHeader, today.Format(config.DateFormatISO))
	for _, d := range due {
		fmt.Fprintf(w, config.MsgDryRunLine, d.Name, d.DaysUntil, d.Occurrence.Format(config.DateFormatISO))
	}
	return nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdList,
		Short: config.CmdDescList,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if _, err := a.configs.Load(); err != nil {
				return err
			}
			h := bot.NewHandlers(bot.Deps{Store: a.configs, Identities: a.ids, Translator: a.tr})
			fmt.Fprintln(cmd.OutOrStdout(), h.List())
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdValidate,
		Short: config.CmdDescValidate,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			cfg, err := a.configs.Load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), config.MsgValidateOutput,
				len(cfg.Birthdays), cfg.Timezone, cfg.DailySendTime, cfg.LeapDayRule)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   config.CmdImportVCard + config.ArgsImportVCard,
		Short: config.CmdDescImport,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			n, err := a.importVCards(cmd.Context(), args[0], user, pass)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), config.MsgImportOutput, n, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&user, config.FlagUser, "", config.FlagDescUser)
	cmd.Flags().StringVar(&pass, config.FlagPass, "", config.FlagDescPass)
	return cmd
}

// importVCards appends every usable card of source to the config and
// returns how many were added. Cards the config rejects are skipped; a
// broken config file aborts the import.
func (a *app) importVCards(ctx context.Context, source, user, pass string) (int, error) {
	if _, err := a.configs.EnsureDefault(); err != nil {
		return 0, err
	}

	rc, err := engine.OpenVCardSource(ctx, source, user, pass, engine.NewHTTPFetcher())
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	records, err := engine.DecodeVCards(ctx, rc, config.DefaultReminderOffsets)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, rec := range records {
		if _, err := a.configs.Append(rec); err != nil {
			var ce *engine.ConfigError
			if errors.As(err, &ce) && ce.Record >= 0 {
				slog.Warn(config.MsgSkippedCard,
					config.LogKeyComponent, config.CompMain,
					config.LogKeyName, rec.Name,
					config.LogKeyError, err,
				)
				continue
			}
			return added, err
		}
		added++
	}

	slog.Info(config.MsgImportDone,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyFile, source,
		config.LogKeyCount, added,
	)
	return added, nil
}
