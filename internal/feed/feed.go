// Package feed renders enriched birthdays as an iCalendar subscription.
package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

// SummaryFunc localizes an event title. age is the age reached on the event date.
type SummaryFunc func(name string, age int) string

// Generator converts a Batch into ICS bytes.
type Generator struct {
	Calculator engine.Calculator

	// FormatSummary lets the presentation layer inject localized titles.
	FormatSummary SummaryFunc

	// ReminderTrigger is an ISO8601 duration ("-P1D"); empty disables alarms.
	ReminderTrigger string
}

// Build emits one all-day event per record for the previous, current and next year
// of batch.Today, so calendar clients scrolling around have data without a resync.
// now stamps the events (DTSTAMP).
func (g *Generator) Build(batch engine.Batch, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for _, rec := range batch.Records {
		for _, e := range g.eventsFor(rec, batch.Today.Year()) {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
		if rec.IsToday {
			slog.Info(config.MsgBdayToday,
				config.LogKeyComponent, config.CompFeed,
				config.LogKeyName, rec.DisplayName(),
				config.LogKeyDOB, rec.DateOfBirth)
		}
	}

	// An empty VCALENDAR fails encoding; serve a valid stub instead.
	if len(cal.Children) == 0 {
		g.logSuccess(batch, 0)
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	g.logSuccess(batch, len(cal.Children))
	return buf.Bytes(), nil
}

func (g *Generator) logSuccess(batch engine.Batch, events int) {
	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompFeed,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyFound, len(batch.Records)),
			slog.Int(config.LogKeyToday, batch.TodayCount()),
			slog.Int(config.LogKeyInvalid, len(batch.Failures)),
			slog.Int(config.LogKeyCount, events),
		),
	)
}

// eventsFor builds the events of rec around currentYear, skipping years before birth.
func (g *Generator) eventsFor(rec engine.EnrichedRecord, currentYear int) []*ical.Event {
	name := rec.DisplayName()
	var events []*ical.Event

	for _, y := range []int{currentYear - 1, currentYear, currentYear + 1} {
		if y < rec.Born.Year() {
			continue
		}
		eventDate := g.Calculator.LeapDay.ObservedIn(rec.Born, y)
		age := max(g.Calculator.Age(rec.Born, eventDate), 0)
		summary := g.summary(name, age)

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, rec.ID, y, config.ICalDomain))
		event.Props.SetText(config.PropSummary, summary)
		if rec.Notes != "" {
			event.Props.SetText(config.PropDescription, rec.Notes)
		}

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(eventDate)
		event.Props.Set(dtStartProp)

		if g.ReminderTrigger != "" {
			addAlarm(event, g.ReminderTrigger, summary)
		}
		events = append(events, event)
	}
	return events
}

func (g *Generator) summary(name string, age int) string {
	if g.FormatSummary != nil {
		if s := g.FormatSummary(name, age); s != "" {
			return s
		}
	}
	if age == 0 {
		return fmt.Sprintf(config.FallbackSummaryBirth, name)
	}
	return fmt.Sprintf(config.FallbackSummaryAge, name, age)
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set the value directly to avoid a VALUE=TEXT parameter.
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
