package reminder

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/locale"
)

// Renderer turns a due reminder into message text. Several phrasings exist
// per situation; the one used is a pure function of the reminder, so a
// retry sends the same words.
type Renderer struct {
	tr *locale.Translator
}

// NewRenderer returns a renderer backed by tr.
func NewRenderer(tr *locale.Translator) *Renderer {
	return &Renderer{tr: tr}
}

// Render returns the message for due.
func (r *Renderer) Render(due DueReminder) (string, error) {
	group := VariantGroup(due)
	id := fmt.Sprintf(config.FormatVariantID, group, VariantIndex(due, group, config.VariantCounts[group]))

	data := map[string]any{
		"Name": due.Name,
		"Days": due.DaysUntil,
		"Date": due.Occurrence.Format(config.DateFormatISO),
	}
	if due.HasAge {
		data["Age"] = due.Age
	}

	text, err := r.tr.Lookup(id, data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrRender, err)
	}
	return text, nil
}

// VariantGroup picks the message family from the lead time and whether
// the age is known.
func VariantGroup(due DueReminder) string {
	switch {
	case due.DaysUntil == 0 && due.HasAge:
		return config.VariantTodayAge
	case due.DaysUntil == 0:
		return config.VariantToday
	case due.DaysUntil == 1 && due.HasAge:
		return config.VariantTomorrowAge
	case due.DaysUntil == 1:
		return config.VariantTomorrow
	case due.HasAge:
		return config.VariantInDaysAge
	default:
		return config.VariantInDays
	}
}

// VariantIndex hashes (person, occurrence, days, group) into [0, count).
func VariantIndex(due DueReminder, group string, count int) int {
	if count <= 1 {
		return 0
	}
	seed := fmt.Sprintf(config.FormatVariantSeed,
		due.PersonID, due.Occurrence.Format(config.DateFormatISO), due.DaysUntil, group)
	digest := sha256.Sum256([]byte(seed))
	return int(binary.BigEndian.Uint32(digest[:config.VariantHashBytes]) % uint32(count))
}
