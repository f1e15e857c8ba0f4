package engine

import (
	"errors"
	"fmt"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
)

var (
	// ErrMalformedDate means a date of birth is not a valid calendar date.
	ErrMalformedDate = errors.New(config.ErrMalformedDate)

	// ErrFutureDate is advisory: the record is enriched with ages clamped at zero.
	ErrFutureDate = errors.New(config.ErrFutureDate)
)

// RecordError reports why a single record was left out of a batch.
type RecordError struct {
	Record BirthRecord
	Err    error
}

func (e RecordError) Error() string {
	return fmt.Sprintf(config.FormatRecordError, e.Record.ID, e.Record.DateOfBirth, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}
