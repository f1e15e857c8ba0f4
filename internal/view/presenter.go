package view

import (
	"errors"
	"strconv"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

// Card is one birthday ready for display.
type Card struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Surname     string `json:"surname,omitempty"`
	DisplayName string `json:"displayName"`
	DateOfBirth string `json:"dob"`
	Notes       string `json:"notes,omitempty"`

	// Birthday is the localized day and month ("15 March").
	Birthday        string `json:"birthday"`
	Countdown       string `json:"countdown"`
	AgeText         string `json:"ageText"`
	UpcomingAgeText string `json:"upcomingAgeText,omitempty"`

	CurrentAge      int    `json:"currentAge"`
	UpcomingAge     int    `json:"upcomingAge"`
	NextAnniversary string `json:"nextAnniversary"`
	DaysUntilNext   int    `json:"daysUntilNext"`
	IsToday         bool   `json:"isToday"`
	FutureDate      bool   `json:"futureDate,omitempty"`
}

// Invalid is a record that could not be shown, with a readable reason.
type Invalid struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	DateOfBirth string `json:"dob"`
	Reason      string `json:"reason"`
}

// Page is the full list view for one language and one day.
type Page struct {
	Language   string    `json:"language"`
	Today      string    `json:"today"`
	TodayCount int       `json:"todayCount"`
	Headline   string    `json:"headline"`
	Cards      []Card    `json:"birthdays"`
	Invalid    []Invalid `json:"invalid"`
}

// Presenter localizes engine output.
type Presenter struct {
	tr *Translator
}

func NewPresenter(tr *Translator) *Presenter {
	return &Presenter{tr: tr}
}

func (p *Presenter) Translator() *Translator {
	return p.tr
}

// Page renders batch in the language best matching prefs. Card order follows batch.
func (p *Presenter) Page(batch engine.Batch, prefs ...string) Page {
	l := p.tr.Localizer(prefs...)

	page := Page{
		Language:   l.Lang,
		Today:      engine.FormatDate(batch.Today),
		TodayCount: batch.TodayCount(),
		Cards:      make([]Card, 0, len(batch.Records)),
		Invalid:    make([]Invalid, 0, len(batch.Failures)),
	}
	page.Headline = Headline(l, page.TodayCount)

	for _, r := range batch.Records {
		page.Cards = append(page.Cards, cardOf(l, r))
	}
	for _, f := range batch.Failures {
		reason := f.Err.Error()
		if errors.Is(f.Err, engine.ErrMalformedDate) {
			reason = l.Msg(config.TKeyInvalidDate, nil)
		}
		page.Invalid = append(page.Invalid, Invalid{
			ID:          f.Record.ID,
			DisplayName: f.Record.DisplayName(),
			DateOfBirth: f.Record.DateOfBirth,
			Reason:      reason,
		})
	}
	return page
}

func cardOf(l *Localizer, r engine.EnrichedRecord) Card {
	c := Card{
		ID:              r.ID,
		Name:            r.Name,
		Surname:         r.Surname,
		DisplayName:     r.DisplayName(),
		DateOfBirth:     r.DateOfBirth,
		Notes:           r.Notes,
		Birthday:        FormatBirthday(l, r.Born.Day(), int(r.Born.Month())),
		Countdown:       Countdown(l, r.DaysUntilNext),
		CurrentAge:      r.CurrentAge,
		UpcomingAge:     r.UpcomingAge,
		NextAnniversary: engine.FormatDate(r.NextAnniversary),
		DaysUntilNext:   r.DaysUntilNext,
		IsToday:         r.IsToday,
		FutureDate:      r.FutureDate,
	}

	if r.CurrentAge == 0 {
		c.AgeText = l.Msg(config.TKeyAgeBirth, nil)
	} else {
		c.AgeText = l.Plural(config.TKeyYears, r.CurrentAge)
	}
	if r.UpcomingAge != r.CurrentAge {
		c.UpcomingAgeText = l.Plural(config.TKeyTurns, r.UpcomingAge)
	}
	return c
}

// Countdown phrases the distance to the next birthday.
func Countdown(l *Localizer, days int) string {
	switch days {
	case 0:
		return l.Msg(config.TKeyToday, nil)
	case 1:
		return l.Msg(config.TKeyTomorrow, nil)
	default:
		return l.Plural(config.TKeyInDays, days)
	}
}

// FormatBirthday renders day and month in the localizer's language.
func FormatBirthday(l *Localizer, day, month int) string {
	return l.Msg(config.TKeyDateFormat, map[string]any{
		"Day":   day,
		"Month": l.Msg(config.TKeyMonthPrefix+strconv.Itoa(month), nil),
	})
}

// Headline summarizes how many birthdays fall today.
func Headline(l *Localizer, today int) string {
	if today == 0 {
		return l.Msg(config.TKeyTodayCountZero, nil)
	}
	return l.Plural(config.TKeyTodayCount, today)
}

// Summary returns an event title formatter for the calendar feed.
func (p *Presenter) Summary(lang string) func(name string, age int) string {
	l := p.tr.Localizer(lang)
	return func(name string, age int) string {
		if age == 0 {
			return l.Msg(config.TKeyEvtSummaryBirth, map[string]any{"Name": name})
		}
		return l.Msg(config.TKeyEvtSummaryAge, map[string]any{"Name": name, "Age": age})
	}
}
