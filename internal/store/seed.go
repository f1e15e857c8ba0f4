package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

// SeedRecord is one entry of the family seed file.
type SeedRecord struct {
	SeedID  string
	Name    string
	Surname string
	DOB     string
	Notes   string
}

// SeedResult reports a SyncSeed run.
type SeedResult struct {
	// Skipped is true when the stored signature matched and nothing was written.
	Skipped  bool
	Upserted int
	Removed  int
}

// LoadSeedFile reads a JSON array of records. A missing file yields no records.
func LoadSeedFile(path string) ([]SeedRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug(config.MsgSeedMissing, config.LogKeyComponent, config.CompStore, config.LogKeyFile, path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSeedRead, err)
	}
	defer f.Close()

	return DecodeSeed(f)
}

// DecodeSeed parses seed entries, dropping those without a name, date or id.
// Ids may be numbers or strings. When an id repeats, the last entry wins and
// keeps the position of the first.
func DecodeSeed(r io.Reader) ([]SeedRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSeedRead, err)
	}

	out := make([]SeedRecord, 0, len(raw))
	seen := make(map[string]int, len(raw))
	for _, m := range raw {
		rec := SeedRecord{
			SeedID:  field(m, "id"),
			Name:    field(m, "name"),
			Surname: field(m, "surname"),
			DOB:     field(m, "dob"),
			Notes:   field(m, "notes"),
		}
		if rec.Name == "" || rec.DOB == "" || rec.SeedID == "" {
			continue
		}
		if i, ok := seen[rec.SeedID]; ok {
			out[i] = rec
			continue
		}
		seen[rec.SeedID] = len(out)
		out = append(out, rec)
	}
	return out, nil
}

func field(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Signature fingerprints the seed content so unchanged files are not reapplied.
func Signature(seed []SeedRecord) string {
	parts := make([]string, len(seed))
	for i, s := range seed {
		parts[i] = fmt.Sprintf(config.FormatSeedSig, s.SeedID, s.Name, s.Surname, s.DOB, s.Notes)
	}
	return strings.Join(parts, config.SeedSigJoin)
}

func (s SeedRecord) entry() Entry {
	return Entry{
		BirthRecord: engine.BirthRecord{
			ID:          config.SeedIDPrefix + s.SeedID,
			Name:        s.Name,
			Surname:     s.Surname,
			DateOfBirth: s.DOB,
			Notes:       s.Notes,
		},
		Source: config.SourceFamily,
		SeedID: s.SeedID,
	}
}

// SyncSeed makes the family entries of st match seed. Seeded entries get the
// deterministic id "seed_<id>" so repeated runs converge. Family entries no longer
// in the seed are removed, as are other entries duplicating a seeded person.
// Entries the user added are otherwise left alone.
func SyncSeed(ctx context.Context, st SeedStore, seed []SeedRecord, now time.Time) (SeedResult, error) {
	var res SeedResult
	if len(seed) == 0 {
		return res, nil
	}

	sig := Signature(seed)
	prev, err := st.SeedSignature(ctx)
	if err != nil {
		return res, fmt.Errorf("%s: %w", config.ErrSeedSync, err)
	}

	existing, err := st.List(ctx)
	if err != nil {
		return res, fmt.Errorf("%s: %w", config.ErrSeedSync, err)
	}

	if prev == sig && consistent(existing, seed) {
		res.Skipped = true
		slog.Debug(config.MsgSeedSkipped, config.LogKeyComponent, config.CompStore)
		return res, nil
	}

	keep := make(map[string]struct{}, len(seed))
	seedKeys := make(map[string]struct{}, len(seed))
	for _, s := range seed {
		e := s.entry()
		if err := st.Put(ctx, e); err != nil {
			return res, fmt.Errorf("%s: %w", config.ErrSeedSync, err)
		}
		keep[e.ID] = struct{}{}
		seedKeys[DedupeKey(e.Name, e.Surname, e.DateOfBirth)] = struct{}{}
		res.Upserted++
	}

	for _, e := range existing {
		if _, ok := keep[e.ID]; ok {
			continue
		}
		_, dup := seedKeys[DedupeKey(e.Name, e.Surname, e.DateOfBirth)]
		if e.Source != config.SourceFamily && !dup {
			continue
		}
		if err := st.Delete(ctx, e.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return res, fmt.Errorf("%s: %w", config.ErrSeedSync, err)
		}
		res.Removed++
	}

	if err := st.SaveSeedSignature(ctx, sig, now); err != nil {
		return res, fmt.Errorf("%s: %w", config.ErrSeedSync, err)
	}

	slog.Info(config.MsgSeedSynced,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyCount, res.Upserted,
		config.LogKeyRemoved, res.Removed)
	return res, nil
}

// consistent reports whether the stored family entries still mirror seed:
// no duplicated people, one entry per seed record and no unknown seed ids.
func consistent(existing []Entry, seed []SeedRecord) bool {
	ids := make(map[string]struct{}, len(seed))
	for _, s := range seed {
		ids[s.SeedID] = struct{}{}
	}

	keys := make(map[string]struct{})
	family := 0
	for _, e := range existing {
		if e.Source != config.SourceFamily {
			continue
		}
		family++
		key := DedupeKey(e.Name, e.Surname, e.DateOfBirth)
		if _, dup := keys[key]; dup {
			return false
		}
		keys[key] = struct{}{}
		if _, known := ids[e.SeedID]; e.SeedID != "" && !known {
			return false
		}
	}
	return family == len(seed)
}
