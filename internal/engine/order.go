package engine

import (
	"cmp"
	"slices"
)

// SortByUpcoming returns a copy of records ordered for display: today's birthdays
// first, then by days until the next anniversary. The sort is stable, so ties keep
// their input order. The input slice is not modified.
func SortByUpcoming(records []EnrichedRecord) []EnrichedRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, compareUpcoming)
	return out
}

func compareUpcoming(a, b EnrichedRecord) int {
	if a.IsToday != b.IsToday {
		if a.IsToday {
			return -1
		}
		return 1
	}
	return cmp.Compare(a.DaysUntilNext, b.DaysUntilNext)
}
