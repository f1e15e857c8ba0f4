package store

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

// Draft is the user-editable part of a record, as submitted by a form or API call.
type Draft struct {
	Name        string `json:"name"`
	Surname     string `json:"surname,omitempty"`
	DateOfBirth string `json:"dob"`
	Notes       string `json:"notes,omitempty"`
}

// Validate trims the draft and checks it the way the entry form does: a name is
// required, the date must be a real calendar date and not after today.
// The returned draft carries the canonical date layout.
func (d Draft) Validate(today time.Time) (Draft, error) {
	out := Draft{
		Name:        strings.TrimSpace(d.Name),
		Surname:     strings.TrimSpace(d.Surname),
		DateOfBirth: strings.TrimSpace(d.DateOfBirth),
		Notes:       strings.TrimSpace(d.Notes),
	}

	if out.Name == "" {
		return out, fmt.Errorf("%w: %s", ErrInvalidRecord, config.ErrNameRequired)
	}
	if utf8.RuneCountInString(out.Name)+utf8.RuneCountInString(out.Surname) > config.MaxNameLength {
		return out, fmt.Errorf("%w: %s", ErrInvalidRecord, config.ErrNameTooLong)
	}
	if utf8.RuneCountInString(out.Notes) > config.MaxNotesLength {
		return out, fmt.Errorf("%w: %s", ErrInvalidRecord, config.ErrNotesTooLong)
	}

	born, err := engine.ParseDate(out.DateOfBirth)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if born.After(engine.CivilDate(today)) {
		return out, fmt.Errorf("%w: %w", ErrInvalidRecord, engine.ErrFutureDate)
	}
	out.DateOfBirth = engine.FormatDate(born)
	return out, nil
}

// apply copies the draft onto an entry, keeping id and origin.
func (d Draft) apply(e Entry) Entry {
	e.Name = d.Name
	e.Surname = d.Surname
	e.DateOfBirth = d.DateOfBirth
	e.Notes = d.Notes
	return e
}

// DraftOf returns the editable fields of a record.
func DraftOf(r engine.BirthRecord) Draft {
	return Draft{Name: r.Name, Surname: r.Surname, DateOfBirth: r.DateOfBirth, Notes: r.Notes}
}
