package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// CalendarGenerator renders the tracked birthdays as an iCalendar feed.
type CalendarGenerator struct {
	Clock Clock // Interface for time mocking (DTSTAMP).

	// FormatSummary allows callers to inject localized event titles.
	FormatSummary func(name string, age int, yearKnown bool) string
}

// Generate builds the feed for cfg. ids must be the person ids resolved for
// cfg.Birthdays, in the same order; they make event UIDs stable across edits.
//
// Events are emitted for the previous, current and next year relative to today,
// each with one DISPLAY alarm per reminder offset.
func (g *CalendarGenerator) Generate(cfg AppConfig, ids []string, today time.Time) ([]byte, error) {
	if len(ids) != len(cfg.Birthdays) {
		return nil, fmt.Errorf("%s: %d ids for %d birthdays", config.ErrICalEncode, len(ids), len(cfg.Birthdays))
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986: Suggest a refresh interval
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(g.Clock.Now().UTC())

	for i, rec := range cfg.Birthdays {
		events, err := g.createEvents(rec, ids[i], cfg.LeapDayRule, today)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	// A valid but empty VCALENDAR keeps clients from flagging the feed as broken.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Debug(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyCount, len(cal.Children),
	)
	return buf.Bytes(), nil
}

// createEvents generates events for today's year -1, 0 and +1.
// No event is created for a year before the person was born.
func (g *CalendarGenerator) createEvents(rec Record, personID string, rule LeapDayRule, today time.Time) ([]*ical.Event, error) {
	var events []*ical.Event

	for _, y := range []int{today.Year() - 1, today.Year(), today.Year() + 1} {
		if rec.HasYear() && y < rec.Year {
			continue
		}

		date, err := OccurrenceInYear(rec, y, rule)
		if err != nil {
			return nil, err
		}
		age, yearKnown := TurningAge(rec, date)

		summary := fmt.Sprintf(config.FallbackSummary, rec.Name)
		if g.FormatSummary != nil {
			summary = g.FormatSummary(rec.Name, age, yearKnown)
		} else if yearKnown {
			summary = fmt.Sprintf(config.FallbackSummaryAge, rec.Name, age)
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, personID, y, config.ICalDomain))
		event.Props.SetText(config.PropSummary, summary)

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(date)
		event.Props.Set(dtStartProp)

		for _, offset := range rec.Offsets {
			addAlarm(event, triggerFor(offset), summary)
		}

		events = append(events, event)
	}
	return events, nil
}

// triggerFor maps a reminder offset onto an ISO8601 duration relative to DTSTART.
func triggerFor(offset int) string {
	if offset == 0 {
		return config.TriggerSameDay
	}
	return fmt.Sprintf(config.FormatTriggerDays, offset)
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
