package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// DecodeVCards reads a vCard stream and returns one Record per card with a
// usable BDAY. Malformed cards and dates are skipped so a single bad entry
// does not block an import; a read failure of r aborts the whole import.
// Every record gets a copy of offsets.
func DecodeVCards(ctx context.Context, r io.Reader, offsets []int) ([]Record, error) {
	src := &sourceReader{r: r}
	decoder := vcard.NewDecoder(src)
	stats := struct{ processed, withBday int }{}
	var records []Record

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if src.err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrVCardRead, src.err)
		}
		if err != nil {
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyError, err)
			continue
		}

		stats.processed++
		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}

		birthDate, yearKnown, err := parseDate(bday.Value)
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyValue, bday.Value)
			continue
		}
		stats.withBday++

		// Name Strategy: FN (Formatted) > N (Structured) > Fallback
		name := config.FallbackName
		if fn := card.Get(config.VCardFN); fn != nil && strings.TrimSpace(fn.Value) != "" {
			name = strings.TrimSpace(fn.Value)
		} else if n := card.Get(config.VCardN); n != nil && strings.TrimSpace(n.Value) != "" {
			name = structuredName(n.Value)
		}

		record := Record{
			Name:    name,
			Month:   int(birthDate.Month()),
			Day:     birthDate.Day(),
			Offsets: slices.Clone(offsets),
		}
		// Out-of-range years (e.g. placeholder 1604 from some address books) are dropped, not rejected.
		if yearKnown && birthDate.Year() >= config.MinBirthYear && birthDate.Year() <= config.MaxBirthYear {
			record.Year = birthDate.Year()
		}
		records = append(records, record)
	}

	slog.Info(config.MsgImportDone,
		config.LogKeyComponent, config.CompEngine,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.processed),
			slog.Int(config.LogKeyFound, stats.withBday),
		),
	)
	return records, nil
}

// structuredName turns "Family;Given;Additional;Prefix;Suffix" into "Given Family".
func structuredName(value string) string {
	parts := strings.Split(value, ";")
	if len(parts) < 2 {
		return strings.TrimSpace(value)
	}
	return strings.Join(strings.Fields(parts[1]+" "+parts[0]), " ")
}

// parseDate handles various vCard date formats.
func parseDate(value string) (time.Time, bool, error) {
	formatsWithYear := []string{
		config.DateFormatISO,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}

	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return Date(t.Year(), t.Month(), t.Day()), true, nil
		}
	}

	// Truncated dates (Year unknown) - vCard specific.
	// time.Parse fills year 0, which is a leap year, so --02-29 survives.
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return Date(config.ReferenceLeapYear, t.Month(), t.Day()), false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}

// sourceReader remembers the first read failure of the underlying stream so
// it can be told apart from vCard syntax errors, which only skip a card.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
	return n, err
}
