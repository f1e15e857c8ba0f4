package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestNextAnniversary verifies the core temporal logic: past, future, today,
// year rollover and leap-day handling under both policies.
func TestNextAnniversary(t *testing.T) {
	// Reference "Now": June 15th, 2025 (Non-Leap Year), mid-morning.
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		born     time.Time
		policy   LeapDayPolicy
		expected time.Time
		desc     string
	}{
		{
			name:     "Birthday in the past (this year)",
			born:     date(1990, 1, 1),
			expected: date(2026, 1, 1),
			desc:     "Jan 1 is before June 15, so next occurrence is 2026",
		},
		{
			name:     "Birthday in the future (this year)",
			born:     date(1990, 12, 31),
			expected: date(2025, 12, 31),
			desc:     "Dec 31 is after June 15, so next occurrence is 2025",
		},
		{
			name:     "Birthday is Today",
			born:     date(1990, 6, 15),
			expected: date(2025, 6, 15),
			desc:     "Time of day must not push today's birthday into next year",
		},
		{
			name:     "Leapling - March 1 policy",
			born:     date(2000, 2, 29),
			policy:   LeapDayMarch1,
			expected: date(2026, 3, 1),
			desc:     "2026 is a common year, so the anniversary is observed on March 1st",
		},
		{
			name:     "Leapling - Feb 28 policy",
			born:     date(2000, 2, 29),
			policy:   LeapDayFeb28,
			expected: date(2026, 2, 28),
			desc:     "2026 is a common year, so the anniversary is observed on February 28th",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Calculator{LeapDay: tt.policy}
			assert.Equal(t, tt.expected, c.NextAnniversary(tt.born, now), tt.desc)
		})
	}
}

// TestNextAnniversary_LeapYearContext verifies behavior when the current year is a leap year.
func TestNextAnniversary_LeapYearContext(t *testing.T) {
	now := date(2024, 1, 1)
	born := date(2000, 2, 29)

	for _, p := range []LeapDayPolicy{LeapDayMarch1, LeapDayFeb28} {
		next := Calculator{LeapDay: p}.NextAnniversary(born, now)
		assert.Equal(t, date(2024, 2, 29), next, "In a leap year the birthday is Feb 29 under %s", p)
	}
}

func TestNextAnniversary_LocalWallClock(t *testing.T) {
	// 23:30 on June 14th in UTC-5 is already June 15th in UTC; the local date wins.
	loc := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, 6, 14, 23, 30, 0, 0, loc)

	next := NextAnniversary(date(1990, 6, 15), now)
	assert.Equal(t, date(2024, 6, 15), next)
	assert.Equal(t, 1, DaysUntil(next, now))
}

func TestAge(t *testing.T) {
	born := date(2000, 3, 15)

	assert.Equal(t, 23, Age(born, date(2024, 3, 14)), "one day before the anniversary")
	assert.Equal(t, 24, Age(born, date(2024, 3, 15)), "on the anniversary")
	assert.Equal(t, 24, Age(born, date(2024, 12, 31)))
	assert.Equal(t, 0, Age(born, born))
	assert.Equal(t, -1, Age(date(2030, 1, 1), date(2029, 6, 1)), "future birth dates are not clamped here")
}

func TestAge_LeapDayFollowsPolicy(t *testing.T) {
	born := date(2000, 2, 29)

	march := Calculator{LeapDay: LeapDayMarch1}
	assert.Equal(t, 24, march.Age(born, date(2025, 2, 28)))
	assert.Equal(t, 25, march.Age(born, date(2025, 3, 1)))

	feb := Calculator{LeapDay: LeapDayFeb28}
	assert.Equal(t, 24, feb.Age(born, date(2025, 2, 27)))
	assert.Equal(t, 25, feb.Age(born, date(2025, 2, 28)))

	assert.Equal(t, 24, march.Age(born, date(2024, 2, 29)), "real leap years use Feb 29")
	assert.Equal(t, 23, march.Age(born, date(2024, 2, 28)))
}

func TestDaysUntil(t *testing.T) {
	today := date(2024, 12, 30)

	assert.Equal(t, 0, DaysUntil(today, today))
	assert.Equal(t, 0, DaysUntil(today.Add(23*time.Hour), today), "time of day is ignored")
	assert.Equal(t, 6, DaysUntil(date(2025, 1, 5), today))
	assert.Equal(t, 366, DaysUntil(date(2025, 3, 1), date(2024, 2, 29)))
	assert.Equal(t, 365, DaysUntil(date(2026, 1, 1), date(2025, 1, 1)))
}

func TestDaysUntil_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// The night of March 30th 2025 is 23h long in Paris.
	today := time.Date(2025, 3, 29, 12, 0, 0, 0, loc)
	next := time.Date(2025, 4, 2, 0, 0, 0, 0, loc)
	assert.Equal(t, 4, DaysUntil(next, today))
}

func TestParseDate(t *testing.T) {
	valid := map[string]time.Time{
		"2000-03-15":           date(2000, 3, 15),
		"20000315":             date(2000, 3, 15),
		"2000-03-15T10:00:00Z": date(2000, 3, 15),
		" 2000-03-15 ":         date(2000, 3, 15),
		"2000-02-29":           date(2000, 2, 29),
	}
	for in, want := range valid {
		got, err := ParseDate(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "not-a-date", "2023-02-29", "2023-13-01", "2023-04-31", "--03-15"} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrMalformedDate, in)
	}
}

func TestParseLeapDayPolicy(t *testing.T) {
	p, err := ParseLeapDayPolicy("feb28")
	assert.NoError(t, err)
	assert.Equal(t, LeapDayFeb28, p)

	p, err = ParseLeapDayPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, LeapDayMarch1, p)

	_, err = ParseLeapDayPolicy("skip")
	assert.Error(t, err)
}

func TestIsLeapYear(t *testing.T) {
	assert.True(t, IsLeapYear(2000))
	assert.True(t, IsLeapYear(2024))
	assert.False(t, IsLeapYear(1900))
	assert.False(t, IsLeapYear(2025))
}

func TestCompareUpcoming(t *testing.T) {
	today := EnrichedRecord{IsToday: true}
	soon := EnrichedRecord{DaysUntilNext: 1}
	later := EnrichedRecord{DaysUntilNext: 10}

	assert.Equal(t, -1, compareUpcoming(today, soon))
	assert.Equal(t, 1, compareUpcoming(later, soon))
	assert.Equal(t, 0, compareUpcoming(soon, soon))
}
