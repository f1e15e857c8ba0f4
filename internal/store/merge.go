package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

// MergeResult counts what a Merge did.
type MergeResult struct {
	Added   int
	Skipped int
}

// DedupeKey identifies a person regardless of case, padding and id.
func DedupeKey(name, surname, dob string) string {
	return fmt.Sprintf(config.FormatDedupeKey, normalize(name), normalize(surname), strings.TrimSpace(dob))
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Merge adds the incoming records that are not already in s, matched by DedupeKey.
// Incoming ids are kept so repeated imports stay stable; source tags the new entries.
// A record whose id already belongs to an entry from source is skipped even when
// the user edited that entry, and ids of imported entries the user deleted are
// not brought back.
func Merge(ctx context.Context, s Store, incoming []engine.BirthRecord, source string) (MergeResult, error) {
	var res MergeResult

	existing, err := s.List(ctx)
	if err != nil {
		return res, fmt.Errorf("%s: %w", config.ErrMerge, err)
	}
	dismissed, err := s.DismissedImports(ctx)
	if err != nil {
		return res, fmt.Errorf("%s: %w", config.ErrMerge, err)
	}

	keys := make(map[string]struct{}, len(existing)+len(incoming))
	// origins maps each stored id to the source of its entry.
	origins := make(map[string]string, len(existing))
	for _, e := range existing {
		keys[DedupeKey(e.Name, e.Surname, e.DateOfBirth)] = struct{}{}
		origins[e.ID] = e.Source
	}

	for _, r := range incoming {
		e := Entry{BirthRecord: r, Source: source}
		e.ID = importID(r.ID, source, origins)

		if _, gone := dismissed[e.ID]; gone && e.ID != "" {
			res.Skipped++
			continue
		}
		key := DedupeKey(r.Name, r.Surname, r.DateOfBirth)
		if _, dup := keys[key]; dup {
			res.Skipped++
			continue
		}
		if origin, taken := origins[e.ID]; taken {
			if origin == source {
				res.Skipped++
				continue
			}
			e.ID = ""
		}

		created, err := s.Create(ctx, e)
		if err != nil {
			return res, fmt.Errorf("%s: %w", config.ErrMerge, err)
		}
		keys[key] = struct{}{}
		origins[created.ID] = source
		res.Added++
	}

	slog.Info(config.MsgMerged,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyAdded, res.Added,
		config.LogKeySkipped, res.Skipped)
	return res, nil
}

// importID returns the id an incoming record is stored under: its own id, or the
// id prefixed with source when an entry from elsewhere already holds it.
func importID(id, source string, origins map[string]string) string {
	origin, taken := origins[id]
	if id == "" || !taken || origin == source {
		return id
	}
	return fmt.Sprintf(config.FormatImportID, source, id)
}
