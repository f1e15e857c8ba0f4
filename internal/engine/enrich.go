package engine

import (
	"log/slog"
	"time"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
)

// Enrich derives the anniversary facts of one record for today.
// It fails only when the date of birth is malformed.
func (c Calculator) Enrich(r BirthRecord, today time.Time) (EnrichedRecord, error) {
	born, err := ParseDate(r.DateOfBirth)
	if err != nil {
		return EnrichedRecord{}, err
	}

	today = CivilDate(today)
	next := c.NextAnniversary(born, today)
	days := DaysUntil(next, today)

	return EnrichedRecord{
		BirthRecord:     r,
		Born:            born,
		CurrentAge:      max(c.Age(born, today), 0),
		UpcomingAge:     max(c.Age(born, next), 0),
		NextAnniversary: next,
		DaysUntilNext:   days,
		IsToday:         days == 0,
		FutureDate:      born.After(today),
	}, nil
}

// EnrichAndSort enriches every record against the same today and orders the result.
// A record with a malformed date is reported in Batch.Failures and does not stop
// the others.
func (c Calculator) EnrichAndSort(records []BirthRecord, today time.Time) Batch {
	today = CivilDate(today)
	batch := Batch{
		Today:   today,
		Records: make([]EnrichedRecord, 0, len(records)),
	}

	for _, r := range records {
		e, err := c.Enrich(r, today)
		if err != nil {
			slog.Debug(config.MsgSkippedRecord,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyID, r.ID,
				config.LogKeyValue, r.DateOfBirth,
				config.LogKeyError, err)
			batch.Failures = append(batch.Failures, RecordError{Record: r, Err: err})
			continue
		}
		if e.FutureDate {
			slog.Debug(config.MsgFutureRecord,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyID, r.ID,
				config.LogKeyDOB, r.DateOfBirth)
		}
		batch.Records = append(batch.Records, e)
	}

	batch.Records = SortByUpcoming(batch.Records)
	return batch
}

// EnrichAndSort uses the default leap-day policy.
func EnrichAndSort(records []BirthRecord, today time.Time) Batch {
	return Calculator{}.EnrichAndSort(records, today)
}
