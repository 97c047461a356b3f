package bot

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

var (
	ErrBirthdayFormat = errors.New(config.ErrBirthdayFormat)
	ErrOffsetsFormat  = errors.New(config.ErrOffsetsFormat)
	ErrOffsetsEmpty   = errors.New(config.ErrOffsetsEmpty)
)

var (
	fullBirthday  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	shortBirthday = regexp.MustCompile(`^(\d{2})-(\d{2})$`)
)

// ParseBirthdayText accepts YYYY-MM-DD or MM-DD. The returned year is zero
// for the short form. Impossible dates wrap engine.ErrInvalidDate.
func ParseBirthdayText(raw string) (month, day, year int, err error) {
	value := strings.TrimSpace(raw)

	if m := fullBirthday.FindStringSubmatch(value); m != nil {
		year, month, day = atoi(m[1]), atoi(m[2]), atoi(m[3])
		if year < config.MinBirthYear || year > config.MaxBirthYear {
			return 0, 0, 0, fmt.Errorf("%w: year %d", engine.ErrInvalidDate, year)
		}
		if err := engine.ValidateFullDate(year, month, day); err != nil {
			return 0, 0, 0, err
		}
		return month, day, year, nil
	}

	if m := shortBirthday.FindStringSubmatch(value); m != nil {
		month, day = atoi(m[1]), atoi(m[2])
		if err := engine.ValidateMonthDay(month, day, true); err != nil {
			return 0, 0, 0, err
		}
		return month, day, 0, nil
	}

	return 0, 0, 0, ErrBirthdayFormat
}

// ParseOffsetsText parses "30, 7,1,0" into a descending unique list.
// Blank input, "skip" and "default" select the default offsets and report
// usedDefault.
func ParseOffsetsText(raw string) (offsets []int, usedDefault bool, err error) {
	text := strings.TrimSpace(raw)
	switch strings.ToLower(text) {
	case "", "skip", "default":
		return slices.Clone(config.DefaultReminderOffsets), true, nil
	}

	seen := make(map[int]bool)
	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if !isDigits(token) {
			return nil, false, ErrOffsetsFormat
		}
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrOffsetsFormat, err)
		}
		if !seen[n] {
			seen[n] = true
			offsets = append(offsets, n)
		}
	}
	if len(offsets) == 0 {
		return nil, false, ErrOffsetsEmpty
	}

	slices.SortFunc(offsets, func(a, b int) int { return b - a })
	return offsets, false, nil
}

func isSkip(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "skip", "keep", "same":
		return true
	}
	return false
}

// decision parses a yes/no answer; ok is false for anything else.
func decision(value string) (yes, ok bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	}
	return false, false
}

func formatBirthday(rec engine.Record) string {
	if !rec.HasYear() {
		return fmt.Sprintf("%02d-%02d", rec.Month, rec.Day)
	}
	return fmt.Sprintf("%04d-%02d-%02d", rec.Year, rec.Month, rec.Day)
}

// formatOffsetList renders offsets as "[30, 7, 1, 0]".
func formatOffsetList(offsets []int) string {
	parts := make([]string, len(offsets))
	for i, o := range offsets {
		parts[i] = strconv.Itoa(o)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// atoi is only called on regexp-matched digit runs.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
