// Package ledger remembers which reminders have already been delivered.
package ledger

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// DedupeKey identifies one delivered reminder: the send date, the person
// and the lead time in days.
func DedupeKey(date time.Time, personID string, offsetDays int) string {
	return fmt.Sprintf(config.FormatDedupeKey, date.Format(config.DateFormatISO), personID, offsetDays)
}

// State is the in-memory sent ledger. The zero value is ready to use.
type State struct {
	sent map[string]struct{}

	// LastPruned is the date of the last Prune, nil if never pruned.
	LastPruned *time.Time
}

// NewState returns a state holding keys.
func NewState(keys ...string) *State {
	s := &State{}
	for _, k := range keys {
		s.Mark(k)
	}
	return s
}

// Has reports whether key was marked sent.
func (s *State) Has(key string) bool {
	_, ok := s.sent[key]
	return ok
}

// Mark records key as sent.
func (s *State) Mark(key string) {
	if s.sent == nil {
		s.sent = make(map[string]struct{})
	}
	s.sent[key] = struct{}{}
}

// Len returns the number of remembered keys.
func (s *State) Len() int {
	return len(s.sent)
}

// Keys returns the remembered keys in no particular order.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.sent))
	for k := range s.sent {
		keys = append(keys, k)
	}
	return keys
}

// Prune forgets keys whose send date is more than retentionDays before
// today. Keys that do not parse are dropped as corrupt. It returns the
// number of keys removed.
func (s *State) Prune(today time.Time, retentionDays int) int {
	y, m, d := today.Date()
	today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -retentionDays)

	dropped := 0
	for key := range s.sent {
		sentOn, ok := keyDate(key)
		if !ok {
			slog.Warn(config.MsgStateKeyCorrupt,
				config.LogKeyComponent, config.CompLedger,
				config.LogKeyKey, key,
			)
		}
		if !ok || sentOn.Before(cutoff) {
			delete(s.sent, key)
			dropped++
		}
	}

	s.LastPruned = &today
	slog.Debug(config.MsgStatePruned,
		config.LogKeyComponent, config.CompLedger,
		config.LogKeyKept, len(s.sent),
		config.LogKeyDropped, dropped,
	)
	return dropped
}

// keyDate extracts the send date of a well-formed dedupe key.
func keyDate(key string) (time.Time, bool) {
	parts := strings.Split(key, config.KeySeparator)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	t, err := time.Parse(config.DateFormatISO, parts[0])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
