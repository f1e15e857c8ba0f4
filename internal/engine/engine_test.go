package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(id, dob string) engine.BirthRecord {
	return engine.BirthRecord{ID: id, Name: "Person " + id, DateOfBirth: dob}
}

func TestEnrich_BirthdayToday(t *testing.T) {
	e, err := engine.Calculator{}.Enrich(record("a", "1990-06-15"), day(2024, 6, 15))
	require.NoError(t, err)

	assert.True(t, e.IsToday)
	assert.Equal(t, 0, e.DaysUntilNext)
	assert.Equal(t, 34, e.CurrentAge)
	assert.Equal(t, 34, e.UpcomingAge)
	assert.Equal(t, day(2024, 6, 15), e.NextAnniversary)
	assert.False(t, e.FutureDate)
}

func TestEnrich_YearRollover(t *testing.T) {
	e, err := engine.Calculator{}.Enrich(record("a", "1985-01-05"), day(2024, 12, 30))
	require.NoError(t, err)

	assert.Equal(t, day(2025, 1, 5), e.NextAnniversary)
	assert.Equal(t, 6, e.DaysUntilNext)
	assert.Equal(t, 39, e.CurrentAge)
	assert.Equal(t, 40, e.UpcomingAge)
	assert.False(t, e.IsToday)
}

func TestEnrich_LeapDay(t *testing.T) {
	r := record("leap", "2000-02-29")
	today := day(2025, 3, 1)

	t.Run("March1Policy", func(t *testing.T) {
		e, err := engine.Calculator{LeapDay: engine.LeapDayMarch1}.Enrich(r, today)
		require.NoError(t, err)
		assert.Equal(t, day(2025, 3, 1), e.NextAnniversary)
		assert.True(t, e.IsToday)
		assert.Equal(t, 0, e.DaysUntilNext)
		assert.Equal(t, 25, e.CurrentAge)
		assert.Equal(t, 25, e.UpcomingAge)
	})

	t.Run("Feb28Policy", func(t *testing.T) {
		e, err := engine.Calculator{LeapDay: engine.LeapDayFeb28}.Enrich(r, today)
		require.NoError(t, err)
		assert.Equal(t, day(2026, 2, 28), e.NextAnniversary)
		assert.False(t, e.IsToday)
		assert.Equal(t, 364, e.DaysUntilNext)
		assert.Equal(t, 25, e.CurrentAge)
		assert.Equal(t, 26, e.UpcomingAge)
	})

	t.Run("Feb28PolicyOnTheDay", func(t *testing.T) {
		e, err := engine.Calculator{LeapDay: engine.LeapDayFeb28}.Enrich(r, day(2025, 2, 28))
		require.NoError(t, err)
		assert.True(t, e.IsToday)
		assert.Equal(t, e.CurrentAge, e.UpcomingAge, "ages agree on the observed day")
	})
}

func TestEnrich_FutureDateClampsAges(t *testing.T) {
	e, err := engine.Calculator{}.Enrich(record("f", "2030-05-01"), day(2026, 10, 16))
	require.NoError(t, err)

	assert.True(t, e.FutureDate)
	assert.Equal(t, 0, e.CurrentAge)
	assert.Equal(t, 0, e.UpcomingAge)
	assert.Equal(t, day(2027, 5, 1), e.NextAnniversary)
	assert.GreaterOrEqual(t, e.DaysUntilNext, 0)
}

func TestEnrich_MalformedDate(t *testing.T) {
	_, err := engine.Calculator{}.Enrich(record("bad", "31/12/1990"), day(2024, 1, 1))
	assert.ErrorIs(t, err, engine.ErrMalformedDate)
}

// TestEnrichAndSort_OrderingScenario: three records at {5, 0, 5} days, only the
// second is today. The today record comes first and the two ties keep their order.
func TestEnrichAndSort_OrderingScenario(t *testing.T) {
	today := day(2024, 6, 10)
	records := []engine.BirthRecord{
		record("first", "1990-06-15"),
		record("today", "1980-06-10"),
		record("second", "2001-06-15"),
	}

	batch := engine.EnrichAndSort(records, today)

	require.Len(t, batch.Records, 3)
	assert.Empty(t, batch.Failures)
	assert.Equal(t, "today", batch.Records[0].ID)
	assert.Equal(t, "first", batch.Records[1].ID)
	assert.Equal(t, "second", batch.Records[2].ID)
	assert.Equal(t, 5, batch.Records[1].DaysUntilNext)
	assert.Equal(t, 1, batch.TodayCount())
	assert.Equal(t, today, batch.Today)
}

func TestEnrichAndSort_MalformedRecordDoesNotAbortBatch(t *testing.T) {
	today := day(2024, 6, 10)
	records := []engine.BirthRecord{
		record("late", "1990-12-01"),
		record("broken", "1990-02-30"),
		record("soon", "1990-06-11"),
		record("empty", ""),
	}

	batch := engine.EnrichAndSort(records, today)

	require.Len(t, batch.Records, 2)
	assert.Equal(t, "soon", batch.Records[0].ID)
	assert.Equal(t, "late", batch.Records[1].ID)

	require.Len(t, batch.Failures, 2)
	assert.Equal(t, "broken", batch.Failures[0].Record.ID)
	assert.Equal(t, "empty", batch.Failures[1].Record.ID)
	for _, f := range batch.Failures {
		assert.ErrorIs(t, f, engine.ErrMalformedDate)
		assert.Contains(t, f.Error(), f.Record.ID)
	}
}

func TestEnrichAndSort_Idempotent(t *testing.T) {
	today := day(2025, 2, 14)
	records := []engine.BirthRecord{
		record("1", "1970-02-14"),
		record("2", "1999-02-15"),
		record("3", "2004-02-29"),
		record("4", "1988-02-15"),
		record("5", "garbage"),
	}

	first := engine.EnrichAndSort(records, today)
	second := engine.EnrichAndSort(records, today)
	assert.Equal(t, first, second)
}

func TestEnrichAndSort_DoesNotMutateInput(t *testing.T) {
	records := []engine.BirthRecord{record("b", "1990-12-01"), record("a", "1990-01-02")}
	snapshot := append([]engine.BirthRecord(nil), records...)

	engine.EnrichAndSort(records, day(2024, 1, 1))
	assert.Equal(t, snapshot, records)
}

func TestEnrichAndSort_Empty(t *testing.T) {
	batch := engine.EnrichAndSort(nil, day(2024, 1, 1))
	assert.Empty(t, batch.Records)
	assert.Empty(t, batch.Failures)
	assert.Equal(t, 0, batch.TodayCount())
}

// TestProperty_DaysUntilNonNegative walks a full leap year of birthdays against a
// spread of reference dates under each leap-day policy: days are never negative and
// are zero exactly when the observed month/day matches.
func TestProperty_DaysUntilNonNegative(t *testing.T) {
	refs := []time.Time{day(2023, 1, 1), day(2023, 2, 28), day(2023, 3, 1), day(2024, 2, 29), day(2024, 12, 31)}

	for _, policy := range []engine.LeapDayPolicy{engine.LeapDayMarch1, engine.LeapDayFeb28} {
		t.Run(policy.String(), func(t *testing.T) {
			calc := engine.Calculator{LeapDay: policy}

			for born := day(2000, 1, 1); born.Year() == 2000; born = born.AddDate(0, 0, 1) {
				for _, today := range refs {
					next := calc.NextAnniversary(born, today)
					days := engine.DaysUntil(next, today)

					require.GreaterOrEqual(t, days, 0)
					require.Less(t, days, 367)

					observed := policy.ObservedIn(born, today.Year())
					sameDay := observed.Month() == today.Month() && observed.Day() == today.Day()
					require.Equal(t, sameDay, days == 0, "born %s today %s", born, today)

					up := calc.Age(born, next)
					cur := calc.Age(born, today)
					if days == 0 {
						require.Equal(t, cur, up)
					} else {
						require.Equal(t, cur+1, up)
					}
				}
			}
		})
	}
}

func TestSortByUpcoming_Stable(t *testing.T) {
	in := []engine.EnrichedRecord{
		{BirthRecord: engine.BirthRecord{ID: "a"}, DaysUntilNext: 3},
		{BirthRecord: engine.BirthRecord{ID: "b"}, DaysUntilNext: 1},
		{BirthRecord: engine.BirthRecord{ID: "c"}, DaysUntilNext: 3},
		{BirthRecord: engine.BirthRecord{ID: "d"}, IsToday: true},
		{BirthRecord: engine.BirthRecord{ID: "e"}, DaysUntilNext: 1},
		{BirthRecord: engine.BirthRecord{ID: "f"}, IsToday: true},
	}

	out := engine.SortByUpcoming(in)

	ids := make([]string, len(out))
	for i, r := range out {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"d", "f", "b", "e", "a", "c"}, ids)
	assert.Equal(t, "a", in[0].ID, "input order is untouched")
}

func TestToday_UsesClockLocalDate(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	clock := MockClock{CurrentTime: time.Date(2024, 6, 15, 1, 0, 0, 0, loc)}
	assert.Equal(t, day(2024, 6, 15), engine.Today(clock))
}
