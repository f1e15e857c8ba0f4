package engine

import (
	"strings"
	"time"
)

// BirthRecord is a stored person as supplied by the storage layer.
// The engine only reads DateOfBirth; the other fields are carried through.
type BirthRecord struct {
	// ID is an opaque identifier, unique within a collection.
	ID string `json:"id"`

	Name    string `json:"name"`
	Surname string `json:"surname,omitempty"`

	// DateOfBirth is a calendar date without time or zone, canonically "2006-01-02".
	DateOfBirth string `json:"dob"`

	Notes string `json:"notes,omitempty"`
}

// DisplayName joins name and surname.
func (r BirthRecord) DisplayName() string {
	return strings.TrimSpace(r.Name + " " + r.Surname)
}

// EnrichedRecord is a BirthRecord plus everything derived from it for one "today".
// It is only valid for the date it was computed on.
type EnrichedRecord struct {
	BirthRecord

	// Born is the parsed date of birth (UTC midnight).
	Born time.Time `json:"-"`

	// CurrentAge is the number of completed years today, clamped at zero.
	CurrentAge int `json:"currentAge"`

	// UpcomingAge is the age reached at NextAnniversary, clamped at zero.
	UpcomingAge int `json:"upcomingAge"`

	// NextAnniversary is the soonest observed anniversary on or after today.
	NextAnniversary time.Time `json:"nextAnniversary"`

	DaysUntilNext int  `json:"daysUntilNext"`
	IsToday       bool `json:"isToday"`

	// FutureDate is set when the date of birth is after today.
	FutureDate bool `json:"futureDate,omitempty"`
}

// Batch is the output of one enrichment pass.
type Batch struct {
	// Today is the single date every record in the batch was computed against.
	Today time.Time

	// Records are ordered by SortByUpcoming.
	Records []EnrichedRecord

	// Failures lists records that could not be enriched, in input order.
	Failures []RecordError
}

// TodayCount returns how many records celebrate today.
func (b Batch) TodayCount() int {
	n := 0
	for _, r := range b.Records {
		if r.IsToday {
			n++
		}
	}
	return n
}
