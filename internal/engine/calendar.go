package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
)

const secondsPerDay = 24 * 60 * 60

// dateLayouts are tried in order; the first is the canonical storage format.
var dateLayouts = []string{
	config.DateFormatFullDash,
	config.DateFormatFullBasic,
	config.DateFormatRFC3339,
	config.DateFormatFullT,
}

// LeapDayPolicy decides when a February 29 birthday is observed in a common year.
type LeapDayPolicy int

const (
	// LeapDayMarch1 observes the anniversary on March 1st.
	LeapDayMarch1 LeapDayPolicy = iota
	// LeapDayFeb28 observes the anniversary on February 28th.
	LeapDayFeb28
)

// ParseLeapDayPolicy maps a settings value to a policy.
func ParseLeapDayPolicy(s string) (LeapDayPolicy, error) {
	switch s {
	case config.LeapDayMarch1, "":
		return LeapDayMarch1, nil
	case config.LeapDayFeb28:
		return LeapDayFeb28, nil
	default:
		return LeapDayMarch1, fmt.Errorf("%s: %q", config.ErrLeapDayUnknown, s)
	}
}

func (p LeapDayPolicy) String() string {
	if p == LeapDayFeb28 {
		return config.LeapDayFeb28
	}
	return config.LeapDayMarch1
}

// ObservedIn returns the date on which the anniversary of born falls in year.
// It never relies on time.Date overflow: Feb 29 is mapped explicitly.
func (p LeapDayPolicy) ObservedIn(born time.Time, year int) time.Time {
	month, day := born.Month(), born.Day()
	if month == time.February && day == 29 && !IsLeapYear(year) {
		if p == LeapDayFeb28 {
			day = 28
		} else {
			month, day = time.March, 1
		}
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsLeapYear reports whether year has a February 29th.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// CivilDate drops the time of day and zone of t, keeping its wall-clock date.
// The result is midnight UTC so that every day is exactly 24 hours long.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a date of birth. Only real calendar dates are accepted
// ("2023-02-30" fails). Errors wrap ErrMalformedDate.
func ParseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return CivilDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, value)
}

// FormatDate renders a date in the canonical storage layout.
func FormatDate(t time.Time) string {
	return t.Format(config.DateFormatFullDash)
}

// Calculator derives anniversary facts from a date of birth.
// The zero value uses LeapDayMarch1.
type Calculator struct {
	LeapDay LeapDayPolicy
}

// NextAnniversary returns the first observed anniversary of born that is today or later.
func (c Calculator) NextAnniversary(born, today time.Time) time.Time {
	today = CivilDate(today)
	candidate := c.LeapDay.ObservedIn(born, today.Year())
	if candidate.Before(today) {
		candidate = c.LeapDay.ObservedIn(born, today.Year()+1)
	}
	return candidate
}

// Age returns the completed years between born and asOf. A year completes on the
// observed anniversary. The value is negative when born is after asOf.
func (c Calculator) Age(born, asOf time.Time) int {
	born, asOf = CivilDate(born), CivilDate(asOf)
	age := asOf.Year() - born.Year()
	if asOf.Before(c.LeapDay.ObservedIn(born, asOf.Year())) {
		age--
	}
	return age
}

// UpcomingAge returns the age reached at the next anniversary.
func (c Calculator) UpcomingAge(born, today time.Time) int {
	return c.Age(born, c.NextAnniversary(born, today))
}

// DaysUntil counts whole days from today to next. Equal dates give exactly 0.
func DaysUntil(next, today time.Time) int {
	next, today = CivilDate(next), CivilDate(today)
	if next.Equal(today) {
		return 0
	}
	return int((next.Unix() - today.Unix()) / secondsPerDay)
}

// NextAnniversary uses the default leap-day policy.
func NextAnniversary(born, today time.Time) time.Time {
	return Calculator{}.NextAnniversary(born, today)
}

// Age uses the default leap-day policy.
func Age(born, asOf time.Time) int {
	return Calculator{}.Age(born, asOf)
}
