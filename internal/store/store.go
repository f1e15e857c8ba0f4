// Package store persists birth records for one owner and keeps them in sync with
// imported address books and the family seed file.
package store

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

var (
	ErrNotFound      = errors.New(config.ErrNotFound)
	ErrInvalidRecord = errors.New(config.ErrInvalidRecord)
	ErrDuplicateID   = errors.New(config.ErrDuplicateID)
)

// Entry is a stored record plus where it came from.
type Entry struct {
	engine.BirthRecord

	// Source is empty for records typed in by the user.
	Source string `json:"source,omitempty"`
	SeedID string `json:"seedId,omitempty"`
}

// Store is the record collection of one owner.
type Store interface {
	// List returns every entry ordered by name.
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	// Create inserts e, assigning a new id when e.ID is empty.
	Create(ctx context.Context, e Entry) (Entry, error)
	// Put inserts or replaces the entry with e.ID.
	Put(ctx context.Context, e Entry) error
	Update(ctx context.Context, id string, d Draft) (Entry, error)
	// Delete removes the entry. Deleting an imported entry remembers its id so
	// later imports leave it out.
	Delete(ctx context.Context, id string) error
	// DismissedImports returns the ids of imported entries the user deleted.
	DismissedImports(ctx context.Context) (map[string]struct{}, error)
}

// SeedMeta remembers which version of the seed file was last applied.
type SeedMeta interface {
	SeedSignature(ctx context.Context) (string, error)
	SaveSeedSignature(ctx context.Context, signature string, at time.Time) error
}

// SeedStore is a Store that can also track seed metadata.
type SeedStore interface {
	Store
	SeedMeta
}

// Records strips storage metadata for the engine.
func Records(entries []Entry) []engine.BirthRecord {
	out := make([]engine.BirthRecord, len(entries))
	for i, e := range entries {
		out[i] = e.BirthRecord
	}
	return out
}

// sortEntries orders by case-insensitive name, then id.
func sortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
