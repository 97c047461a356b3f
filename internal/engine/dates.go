package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// LeapDayRule decides where a Feb 29 birthday lands in non-leap years.
type LeapDayRule string

const (
	LeapFeb28 LeapDayRule = config.LeapRuleFeb28
	LeapMar1  LeapDayRule = config.LeapRuleMar1
)

// ParseLeapDayRule normalizes user input ("FEB28 ", "mar1") into a LeapDayRule.
func ParseLeapDayRule(value string) (LeapDayRule, error) {
	rule := LeapDayRule(strings.ToLower(strings.TrimSpace(value)))
	switch rule {
	case LeapFeb28, LeapMar1:
		return rule, nil
	default:
		return "", NewConfigError("leap_day_rule",
			fmt.Sprintf("%s %q (want %s or %s)", config.ErrLeapRule, value, LeapFeb28, LeapMar1))
	}
}

// Date builds a civil date. All dates handled by the engine are midnight UTC,
// which keeps day arithmetic free of DST gaps.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// ValidateMonthDay checks that month/day form a real calendar date in a
// reference leap year (allowFeb29) or non-leap year.
func ValidateMonthDay(month, day int, allowFeb29 bool) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	if day < 1 || day > 31 {
		return fmt.Errorf("%w: day %d", ErrInvalidDate, day)
	}

	year := config.ReferenceNonLeapYear
	if allowFeb29 {
		year = config.ReferenceLeapYear
	}
	if !isRealDate(year, month, day) {
		return fmt.Errorf("%w: %02d-%02d", ErrInvalidDate, month, day)
	}
	return nil
}

// ValidateFullDate checks a complete year/month/day date.
func ValidateFullDate(year, month, day int) error {
	if !isRealDate(year, month, day) {
		return fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return nil
}

// isRealDate relies on time.Date normalization: an impossible date rolls
// over into another month/day.
func isRealDate(year, month, day int) bool {
	if month < 1 || month > 12 {
		return false
	}
	t := Date(year, time.Month(month), day)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// OccurrenceInYear returns the date the record's birthday is observed in year.
func OccurrenceInYear(rec Record, year int, rule LeapDayRule) (time.Time, error) {
	if rec.IsLeapDay() && !IsLeapYear(year) {
		switch rule {
		case LeapFeb28:
			return Date(year, time.February, 28), nil
		case LeapMar1:
			return Date(year, time.March, 1), nil
		default:
			return time.Time{}, NewConfigError("leap_day_rule", fmt.Sprintf("%s %q", config.ErrLeapRule, rule))
		}
	}
	return Date(year, time.Month(rec.Month), rec.Day), nil
}

// NextOccurrence returns the soonest observed birthday on or after today.
func NextOccurrence(rec Record, today time.Time, rule LeapDayRule) (time.Time, error) {
	today = civil(today)

	thisYear, err := OccurrenceInYear(rec, today.Year(), rule)
	if err != nil {
		return time.Time{}, err
	}
	if !thisYear.Before(today) {
		return thisYear, nil
	}
	return OccurrenceInYear(rec, today.Year()+1, rule)
}

// DaysUntil returns the whole number of days from today to NextOccurrence.
func DaysUntil(rec Record, today time.Time, rule LeapDayRule) (int, error) {
	next, err := NextOccurrence(rec, today, rule)
	if err != nil {
		return 0, err
	}
	return daysBetween(civil(today), next), nil
}

// TurningAge returns the age reached on occurrence. The second result is
// false when the birth year is unknown.
func TurningAge(rec Record, occurrence time.Time) (int, bool) {
	if !rec.HasYear() {
		return 0, false
	}
	return occurrence.Year() - rec.Year, true
}

// civil drops the time of day and location, keeping the wall-clock date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
