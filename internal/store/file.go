package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tartampluch/go-birthday-tracker/internal/config"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Birthdays []Entry   `json:"birthdays"`
	Seed      *seedInfo `json:"seed,omitempty"`
	// Dismissed holds the ids of deleted imported entries.
	Dismissed []string  `json:"dismissed,omitempty"`
}

type seedInfo struct {
	Signature string    `json:"signature"`
	SeededAt  time.Time `json:"seededAt"`
}

// FileStore keeps all entries in a single JSON file. Every call reads the file and
// mutations rewrite it atomically, so external edits are picked up.
// A bare JSON array of records (the seed format) is accepted on read.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sortEntries(doc.Birthdays)
	return doc.Birthdays, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return Entry{}, err
	}
	if i := indexOf(doc.Birthdays, id); i >= 0 {
		return doc.Birthdays[i], nil
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *FileStore) Create(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	} else if indexOf(doc.Birthdays, e.ID) >= 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	doc.Birthdays = append(doc.Birthdays, e)
	return e, s.save(doc)
}

func (s *FileStore) Put(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if i := indexOf(doc.Birthdays, e.ID); i >= 0 {
		doc.Birthdays[i] = e
	} else {
		doc.Birthdays = append(doc.Birthdays, e)
	}
	return s.save(doc)
}

func (s *FileStore) Update(ctx context.Context, id string, d Draft) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return Entry{}, err
	}
	i := indexOf(doc.Birthdays, id)
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	doc.Birthdays[i] = d.apply(doc.Birthdays[i])
	return doc.Birthdays[i], s.save(doc)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(doc.Birthdays, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if doc.Birthdays[i].Source == config.SourceImport && !slices.Contains(doc.Dismissed, id) {
		doc.Dismissed = append(doc.Dismissed, id)
	}
	doc.Birthdays = append(doc.Birthdays[:i], doc.Birthdays[i+1:]...)
	return s.save(doc)
}

func (s *FileStore) DismissedImports(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(doc.Dismissed))
	for _, id := range doc.Dismissed {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *FileStore) SeedSignature(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil || doc.Seed == nil {
		return "", err
	}
	return doc.Seed.Signature, nil
}

func (s *FileStore) SaveSeedSignature(ctx context.Context, signature string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	doc.Seed = &seedInfo{Signature: signature, SeededAt: at.UTC()}
	return s.save(doc)
}

// load reads the document; a missing file is an empty store.
func (s *FileStore) load(ctx context.Context) (fileDocument, error) {
	var doc fileDocument
	if err := ctx.Err(); err != nil {
		return doc, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return doc, nil
	}
	if trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &doc.Birthdays)
	} else {
		err = json.Unmarshal(trimmed, &doc)
	}
	if err != nil {
		return doc, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return doc, nil
}

// save writes to a temporary file and renames it over the target.
func (s *FileStore) save(doc fileDocument) error {
	if doc.Birthdays == nil {
		doc.Birthdays = []Entry{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
			return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
		}
	}

	tmp := s.path + config.ExtTmp
	if err := os.WriteFile(tmp, data, config.FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return nil
}

func indexOf(entries []Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
