package importer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

// Stats summarises one decode pass.
type Stats struct {
	Cards     int // cards decoded
	Birthdays int // cards turned into records
	Skipped   int // cards with an unusable or missing BDAY, or unreadable
}

// yearlessLayouts are vCard BDAY values without a year (--MM-DD).
var yearlessLayouts = []string{config.DateFormatNoYearD, config.DateFormatNoYearB}

// Decode reads a vCard stream into birth records. Malformed cards and cards without
// a usable birthday are skipped so one bad entry does not lose the address book.
func Decode(ctx context.Context, r io.Reader) ([]engine.BirthRecord, Stats, error) {
	decoder := vcard.NewDecoder(r)
	var (
		stats   Stats
		records []engine.BirthRecord
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyError, err)
			stats.Skipped++
			// The decoder cannot resynchronise after a syntax error.
			if errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			continue
		}
		stats.Cards++

		rec, ok := recordFromCard(card)
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Birthdays++
		records = append(records, rec)
	}

	return records, stats, nil
}

// recordFromCard maps FN (or N) and BDAY onto a BirthRecord.
func recordFromCard(card vcard.Card) (engine.BirthRecord, bool) {
	bday := card.Get(config.VCardBDAY)
	if bday == nil || bday.Value == "" {
		return engine.BirthRecord{}, false
	}

	born, err := engine.ParseDate(bday.Value)
	if err != nil {
		if isYearless(bday.Value) {
			slog.Debug(config.MsgSkippedNoYear,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyValue, bday.Value)
		} else {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyValue, bday.Value)
		}
		return engine.BirthRecord{}, false
	}

	name, surname := cardName(card)
	dob := engine.FormatDate(born)

	rec := engine.BirthRecord{
		ID:          RecordID(name, surname, born),
		Name:        name,
		Surname:     surname,
		DateOfBirth: dob,
	}
	if note := card.Get(config.VCardNote); note != nil {
		rec.Notes = note.Value
	}
	return rec, true
}

// cardName prefers the structured name, then FN, then a fallback.
func cardName(card vcard.Card) (string, string) {
	if n := card.Name(); n != nil && (n.GivenName != "" || n.FamilyName != "") {
		given := strings.TrimSpace(strings.Join([]string{n.GivenName, n.AdditionalName}, " "))
		if given == "" {
			return n.FamilyName, ""
		}
		return given, n.FamilyName
	}
	if fn := card.Get(config.VCardFN); fn != nil && strings.TrimSpace(fn.Value) != "" {
		return strings.TrimSpace(fn.Value), ""
	}
	return config.FallbackName, ""
}

func isYearless(value string) bool {
	for _, layout := range yearlessLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// RecordID derives a stable identifier so re-imports update rather than duplicate.
func RecordID(name, surname string, born time.Time) string {
	input := fmt.Sprintf(config.FormatHashInput, name+" "+surname, born.Format(time.RFC3339), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:config.UIDHashLength])
}
