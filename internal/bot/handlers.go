// Package bot is the Telegram front end: commands, the add/edit wizards and
// the notifier that delivers reminders.
package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
	"github.com/tartampluch/go-birthday-bot/internal/locale"
	"github.com/tartampluch/go-birthday-bot/internal/reminder"
	"github.com/tartampluch/go-birthday-bot/internal/store"
)

// ConfigStore is the config surface the wizards need.
type ConfigStore interface {
	Load() (engine.AppConfig, error)
	Append(rec engine.Record) (engine.AppConfig, error)
	Update(index int, rec engine.Record) (engine.AppConfig, error)
}

type step int

const (
	stepAddName step = iota + 1
	stepAddBirthday
	stepAddOffsets
	stepAddConfirm
	stepEditSelect
	stepEditName
	stepEditBirthday
	stepEditOffsets
	stepEditConfirm
)

func (s step) String() string {
	switch s {
	case stepAddName:
		return "add_name"
	case stepAddBirthday:
		return "add_birthday"
	case stepAddOffsets:
		return "add_offsets"
	case stepAddConfirm:
		return "add_confirm"
	case stepEditSelect:
		return "edit_select"
	case stepEditName:
		return "edit_name"
	case stepEditBirthday:
		return "edit_birthday"
	case stepEditOffsets:
		return "edit_offsets"
	case stepEditConfirm:
		return "edit_confirm"
	}
	return "none"
}

// draft is the record being built by a wizard. For edits, original keeps
// the entry as it was when selected and index its position.
type draft struct {
	rec         engine.Record
	original    engine.Record
	index       int
	usedDefault bool
}

type session struct {
	step  step
	draft draft
}

// Deps wires Handlers to its collaborators.
type Deps struct {
	Store      ConfigStore
	Identities reminder.IDAssigner
	Translator *locale.Translator
	Clock      engine.Clock

	// OnChange, if set, runs after a wizard saved the config.
	OnChange func(cfg engine.AppConfig)
}

// Handlers implements the bot conversation independently of Telegram.
// Every method returns the reply text for the chat.
type Handlers struct {
	deps Deps
	tr   *locale.Translator

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewHandlers returns handlers using deps.
func NewHandlers(deps Deps) *Handlers {
	if deps.Clock == nil {
		deps.Clock = engine.RealClock{}
	}
	return &Handlers{
		deps:     deps,
		tr:       deps.Translator,
		sessions: make(map[int64]*session),
	}
}

// Help returns the command overview.
func (h *Handlers) Help() string {
	return h.tr.T(config.TKeyHelp, nil)
}

// Unauthorized is the reply for senders outside the allowed user and chat.
func (h *Handlers) Unauthorized() string {
	return h.tr.T(config.TKeyUnauthorized, nil)
}

// ListRow is one line of the /list answer.
type ListRow struct {
	Name      string
	DaysUntil int
	Next      time.Time
	Age       int
	HasAge    bool
	Offsets   []int
}

// List returns every tracked birthday sorted by soonest occurrence.
func (h *Handlers) List() string {
	cfg, err := h.deps.Store.Load()
	if err != nil {
		h.logError(err)
		return h.tr.T(config.TKeyInternalError, nil)
	}
	if len(cfg.Birthdays) == 0 {
		return h.tr.T(config.TKeyNoBirthdays, nil)
	}

	// Listing is also when new entries get their durable ids.
	if _, err := h.deps.Identities.AssignAndPersist(cfg.Birthdays); err != nil {
		h.logError(err)
		return h.tr.T(config.TKeyInternalError, nil)
	}

	rows, err := h.listRows(cfg)
	if err != nil {
		h.logError(err)
		return h.tr.T(config.TKeyInternalError, nil)
	}
	return RenderList(h.tr, rows)
}

func (h *Handlers) listRows(cfg engine.AppConfig) ([]ListRow, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTimezone, err)
	}
	today := engine.Today(h.deps.Clock, loc)

	rows := make([]ListRow, 0, len(cfg.Birthdays))
	for _, rec := range cfg.Birthdays {
		next, err := engine.NextOccurrence(rec, today, cfg.LeapDayRule)
		if err != nil {
			return nil, err
		}
		days, err := engine.DaysUntil(rec, today, cfg.LeapDayRule)
		if err != nil {
			return nil, err
		}
		age, hasAge := engine.TurningAge(rec, next)
		rows = append(rows, ListRow{
			Name:      rec.Name,
			DaysUntil: days,
			Next:      next,
			Age:       age,
			HasAge:    hasAge,
			Offsets:   rec.Offsets,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DaysUntil != rows[j].DaysUntil {
			return rows[i].DaysUntil < rows[j].DaysUntil
		}
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
	return rows, nil
}

// RenderList formats rows for the /list reply.
func RenderList(tr *locale.Translator, rows []ListRow) string {
	var b strings.Builder
	b.WriteString(tr.T(config.TKeyListHeader, map[string]any{"Count": len(rows)}))
	b.WriteString("\n")

	for i, row := range rows {
		b.WriteString(tr.T(config.TKeyListName, map[string]any{"Index": i + 1, "Name": row.Name}))
		b.WriteString("\n")

		details := []string{
			tr.T(config.TKeyListInDays, map[string]any{"Days": row.DaysUntil}),
			tr.T(config.TKeyListNext, map[string]any{"Date": row.Next.Format(config.DateFormatISO)}),
		}
		if row.HasAge {
			details = append(details, tr.T(config.TKeyListTurning, map[string]any{"Age": row.Age}))
		}
		details = append(details, tr.T(config.TKeyListReminders, map[string]any{"Offsets": offsetLabels(tr, row.Offsets)}))

		b.WriteString("   " + strings.Join(details, " | ") + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n ")
}

// offsetLabels renders offsets as "30d, 7d, day-of".
func offsetLabels(tr *locale.Translator, offsets []int) string {
	labels := make([]string, len(offsets))
	for i, o := range offsets {
		if o == 0 {
			labels[i] = tr.T(config.TKeyOffsetDayOf, nil)
			continue
		}
		labels[i] = tr.T(config.TKeyOffsetDays, map[string]any{"Days": o})
	}
	return strings.Join(labels, ", ")
}

// StartAdd opens the add wizard for chat, replacing any active wizard.
func (h *Handlers) StartAdd(chat int64) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[chat] = &session{step: stepAddName}
	return h.tr.T(config.TKeyAddStart, nil)
}

// StartEdit shows the numbered entries and opens the edit wizard.
func (h *Handlers) StartEdit(chat int64) string {
	cfg, err := h.deps.Store.Load()
	if err != nil {
		h.logError(err)
		return h.tr.T(config.TKeyInternalError, nil)
	}
	if len(cfg.Birthdays) == 0 {
		return h.tr.T(config.TKeyNoBirthdays, nil)
	}

	h.mu.Lock()
	h.sessions[chat] = &session{step: stepEditSelect}
	h.mu.Unlock()

	lines := []string{h.tr.T(config.TKeyEditHeader, nil)}
	for i, rec := range cfg.Birthdays {
		lines = append(lines, h.tr.T(config.TKeyEditRow, map[string]any{
			"Index":    i + 1,
			"Name":     rec.Name,
			"Birthday": formatBirthday(rec),
			"Offsets":  offsetLabels(h.tr, rec.Offsets),
		}))
	}
	return strings.Join(lines, "\n")
}

// Cancel drops the active wizard of chat.
func (h *Handlers) Cancel(chat int64) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, chat)
	return h.tr.T(config.TKeyWizardCancel, nil)
}

// Text feeds a plain message to the active wizard of chat.
func (h *Handlers) Text(chat int64, text string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[chat]
	if !ok {
		return h.tr.T(config.TKeyNoWizard, nil)
	}

	slog.Debug(config.MsgWizardStep,
		config.LogKeyComponent, config.CompBot,
		config.LogKeyChat, chat,
		config.LogKeyStep, s.step.String(),
	)

	reply, done := h.advance(s, text)
	if done {
		delete(h.sessions, chat)
	}
	return reply
}

// advance runs one wizard step. done reports that the session is over.
func (h *Handlers) advance(s *session, text string) (reply string, done bool) {
	value := strings.TrimSpace(text)
	d := &s.draft

	switch s.step {
	case stepAddName:
		if value == "" {
			return h.tr.T(config.TKeyAddNameEmpty, nil), false
		}
		d.rec.Name = value
		s.step = stepAddBirthday
		return h.tr.T(config.TKeyAddAskBirthday, nil), false

	case stepAddBirthday:
		month, day, year, err := ParseBirthdayText(value)
		if err != nil {
			return h.tr.T(config.TKeyAddBadBirthday, map[string]any{"Error": h.errorText(err)}), false
		}
		d.rec.Month, d.rec.Day, d.rec.Year = month, day, year
		s.step = stepAddOffsets
		return h.tr.T(config.TKeyAddAskOffsets, nil), false

	case stepAddOffsets:
		offsets, usedDefault, err := ParseOffsetsText(value)
		if err != nil {
			return h.tr.T(config.TKeyAddBadOffsets, map[string]any{"Error": h.errorText(err)}), false
		}
		d.rec.Offsets, d.usedDefault = offsets, usedDefault
		s.step = stepAddConfirm
		return h.addSummary(d), false

	case stepAddConfirm:
		yes, ok := decision(value)
		if !ok {
			return h.tr.T(config.TKeyAskYesNo, nil), false
		}
		if !yes {
			return h.tr.T(config.TKeyCanceled, nil), true
		}
		cfg, err := h.deps.Store.Append(d.rec)
		if err != nil {
			h.logError(err)
			return h.tr.T(config.TKeyInternalError, nil), true
		}
		h.changed(cfg)
		return h.tr.T(config.TKeyAddSaved, nil), true

	case stepEditSelect:
		return h.selectEntry(s, value), false

	case stepEditName:
		if !isSkip(value) {
			if value == "" {
				return h.tr.T(config.TKeyEditNameEmpty, nil), false
			}
			d.rec.Name = value
		}
		s.step = stepEditBirthday
		return h.tr.T(config.TKeyEditAskBirthday, map[string]any{"Birthday": formatBirthday(d.rec)}), false

	case stepEditBirthday:
		if !isSkip(value) {
			month, day, year, err := ParseBirthdayText(value)
			if err != nil {
				return h.tr.T(config.TKeyEditBadBirthday, map[string]any{"Error": h.errorText(err)}), false
			}
			d.rec.Month, d.rec.Day, d.rec.Year = month, day, year
		}
		s.step = stepEditOffsets
		return h.tr.T(config.TKeyEditAskOffsets, map[string]any{"Offsets": offsetLabels(h.tr, d.rec.Offsets)}), false

	case stepEditOffsets:
		if isSkip(value) {
			d.usedDefault = false
		} else {
			offsets, usedDefault, err := ParseOffsetsText(value)
			if err != nil {
				return h.tr.T(config.TKeyEditBadOffsets, map[string]any{"Error": h.errorText(err)}), false
			}
			d.rec.Offsets, d.usedDefault = offsets, usedDefault
		}
		s.step = stepEditConfirm
		return h.editSummary(d), false

	case stepEditConfirm:
		yes, ok := decision(value)
		if !ok {
			return h.tr.T(config.TKeyAskYesNo, nil), false
		}
		if !yes {
			return h.tr.T(config.TKeyCanceled, nil), true
		}
		cfg, err := h.deps.Store.Update(d.index, d.rec)
		if store.IsIndexError(err) {
			return h.tr.T(config.TKeyEditListChanged, nil), true
		}
		if err != nil {
			h.logError(err)
			return h.tr.T(config.TKeyInternalError, nil), true
		}
		h.changed(cfg)
		return h.tr.T(config.TKeyEditSaved, nil), true
	}

	return h.tr.T(config.TKeyNoWizard, nil), true
}

func (h *Handlers) selectEntry(s *session, value string) string {
	if !isDigits(value) {
		return h.tr.T(config.TKeyEditBadNumber, nil)
	}

	cfg, err := h.deps.Store.Load()
	if err != nil {
		h.logError(err)
		return h.tr.T(config.TKeyInternalError, nil)
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > len(cfg.Birthdays) {
		return h.tr.T(config.TKeyEditOutOfRange, map[string]any{"Max": len(cfg.Birthdays)})
	}

	rec := cfg.Birthdays[n-1]
	rec.Offsets = slices.Clone(rec.Offsets)
	s.draft = draft{rec: rec, original: rec, index: n - 1}
	s.step = stepEditName
	return h.tr.T(config.TKeyEditAskName, map[string]any{"Name": rec.Name})
}

func (h *Handlers) addSummary(d *draft) string {
	year := h.tr.T(config.TKeyYearNotSet, nil)
	if d.rec.HasYear() {
		year = strconv.Itoa(d.rec.Year)
	}
	return h.tr.T(config.TKeyAddSummary, map[string]any{
		"Name":        d.rec.Name,
		"Birthday":    fmt.Sprintf("%02d-%02d", d.rec.Month, d.rec.Day),
		"Year":        year,
		"Offsets":     formatOffsetList(d.rec.Offsets),
		"DefaultNote": h.defaultNote(d),
	})
}

func (h *Handlers) editSummary(d *draft) string {
	return h.tr.T(config.TKeyEditSummary, map[string]any{
		"OldName":     d.original.Name,
		"Name":        d.rec.Name,
		"OldBirthday": formatBirthday(d.original),
		"Birthday":    formatBirthday(d.rec),
		"OldOffsets":  formatOffsetList(d.original.Offsets),
		"Offsets":     formatOffsetList(d.rec.Offsets),
		"DefaultNote": h.defaultNote(d),
	})
}

func (h *Handlers) defaultNote(d *draft) string {
	if !d.usedDefault {
		return ""
	}
	return h.tr.T(config.TKeyDefaultNote, nil)
}

// errorText maps parse errors to their user-facing wording.
func (h *Handlers) errorText(err error) string {
	switch {
	case errors.Is(err, ErrBirthdayFormat):
		return h.tr.T(config.TKeyErrBirthdayFormat, nil)
	case errors.Is(err, engine.ErrInvalidDate):
		return h.tr.T(config.TKeyErrInvalidDate, nil)
	case errors.Is(err, ErrOffsetsEmpty):
		return h.tr.T(config.TKeyErrOffsetsEmpty, nil)
	default:
		return h.tr.T(config.TKeyErrOffsetsFormat, nil)
	}
}

func (h *Handlers) changed(cfg engine.AppConfig) {
	if h.deps.OnChange != nil {
		h.deps.OnChange(cfg)
	}
}

func (h *Handlers) logError(err error) {
	slog.Error(config.MsgBotHandlerFailed,
		config.LogKeyComponent, config.CompBot,
		config.LogKeyError, err,
	)
}
