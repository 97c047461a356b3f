package store

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// Validate checks every field of cfg and returns its normalized form:
// trimmed names and timezone, zero-padded send time, lower-case leap rule,
// offsets sorted descending without duplicates. The first violation is
// returned as an *engine.ConfigError and no partial result is produced.
func Validate(cfg engine.AppConfig) (engine.AppConfig, error) {
	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		return engine.AppConfig{}, engine.NewConfigError("timezone", "must not be empty")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return engine.AppConfig{}, &engine.ConfigError{
			Field: "timezone", Record: -1, Message: fmt.Sprintf("%s %q", config.ErrTimezone, tz), Err: err,
		}
	}

	sendTime, err := NormalizeSendTime(cfg.DailySendTime)
	if err != nil {
		return engine.AppConfig{}, err
	}

	rule, err := engine.ParseLeapDayRule(string(cfg.LeapDayRule))
	if err != nil {
		return engine.AppConfig{}, err
	}

	out := engine.AppConfig{
		Timezone:      tz,
		DailySendTime: sendTime,
		LeapDayRule:   rule,
		Birthdays:     make([]engine.Record, 0, len(cfg.Birthdays)),
	}
	for i, rec := range cfg.Birthdays {
		normalized, err := ValidateRecord(i, rec)
		if err != nil {
			return engine.AppConfig{}, err
		}
		out.Birthdays = append(out.Birthdays, normalized)
	}
	return out, nil
}

// ValidateRecord checks a single birthday. index only labels errors.
func ValidateRecord(index int, rec engine.Record) (engine.Record, error) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return engine.Record{}, engine.NewRecordError(index, "name", "must not be empty", nil)
	}

	if err := engine.ValidateMonthDay(rec.Month, rec.Day, true); err != nil {
		return engine.Record{}, engine.NewRecordError(index, "day", err.Error(), err)
	}

	if rec.HasYear() {
		if rec.Year < config.MinBirthYear || rec.Year > config.MaxBirthYear {
			return engine.Record{}, engine.NewRecordError(index, "year",
				fmt.Sprintf("must be between %d and %d when provided", config.MinBirthYear, config.MaxBirthYear), nil)
		}
		if err := engine.ValidateFullDate(rec.Year, rec.Month, rec.Day); err != nil {
			return engine.Record{}, engine.NewRecordError(index, "year", err.Error(), err)
		}
	}

	offsets, err := NormalizeOffsets(rec.Offsets)
	if err != nil {
		return engine.Record{}, engine.NewRecordError(index, "reminder_offsets", err.Error(), nil)
	}

	return engine.Record{Name: name, Month: rec.Month, Day: rec.Day, Year: rec.Year, Offsets: offsets}, nil
}

// NormalizeOffsets rejects empty or negative offsets and returns a
// descending, duplicate-free copy.
func NormalizeOffsets(offsets []int) ([]int, error) {
	if len(offsets) == 0 {
		return nil, errors.New("must not be empty")
	}
	out := slices.Clone(offsets)
	for _, o := range out {
		if o < 0 {
			return nil, fmt.Errorf("values must be non-negative integers, got %d", o)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	slices.Reverse(out)
	return out, nil
}

// NormalizeSendTime accepts H:MM or HH:MM in 24-hour form and returns HH:MM.
func NormalizeSendTime(value string) (string, error) {
	hour, minute, ok := strings.Cut(value, ":")
	if !ok || !isDigits(hour) || !isDigits(minute) {
		return "", engine.NewConfigError("daily_send_time", fmt.Sprintf("%s, got %q", config.ErrSendTime, value))
	}
	h, _ := strconv.Atoi(hour)
	m, _ := strconv.Atoi(minute)
	if h > 23 || m > 59 {
		return "", engine.NewConfigError("daily_send_time", fmt.Sprintf("%s, got %q", config.ErrSendTime, value))
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// SendClock splits a normalized HH:MM send time into hour and minute.
func SendClock(value string) (int, int, error) {
	normalized, err := NormalizeSendTime(value)
	if err != nil {
		return 0, 0, err
	}
	h, _ := strconv.Atoi(normalized[:2])
	m, _ := strconv.Atoi(normalized[3:])
	return h, m, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
