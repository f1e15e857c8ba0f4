package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tartampluch/go-birthday-tracker/internal/config"
)

const sqliteDriver = "sqlite3"

const (
	schemaBirthdays = `CREATE TABLE IF NOT EXISTS birthdays (
	owner   TEXT NOT NULL,
	id      TEXT NOT NULL,
	name    TEXT NOT NULL,
	surname TEXT NOT NULL DEFAULT '',
	dob     TEXT NOT NULL,
	notes   TEXT NOT NULL DEFAULT '',
	source  TEXT NOT NULL DEFAULT '',
	seed_id TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (owner, id)
)`
	schemaSeedMeta = `CREATE TABLE IF NOT EXISTS seed_meta (
	owner     TEXT PRIMARY KEY,
	signature TEXT NOT NULL,
	seeded_at TEXT NOT NULL
)`
	schemaDismissed = `CREATE TABLE IF NOT EXISTS dismissed_imports (
	owner TEXT NOT NULL,
	id    TEXT NOT NULL,
	PRIMARY KEY (owner, id)
)`

	queryList = `SELECT id, name, surname, dob, notes, source, seed_id FROM birthdays
	WHERE owner = ?`
	queryGet = `SELECT id, name, surname, dob, notes, source, seed_id FROM birthdays
	WHERE owner = ? AND id = ?`
	queryInsert = `INSERT INTO birthdays (owner, id, name, surname, dob, notes, source, seed_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	queryUpsert = queryInsert + `
	ON CONFLICT(owner, id) DO UPDATE SET
		name = excluded.name, surname = excluded.surname, dob = excluded.dob,
		notes = excluded.notes, source = excluded.source, seed_id = excluded.seed_id`
	queryUpdate = `UPDATE birthdays SET name = ?, surname = ?, dob = ?, notes = ?
	WHERE owner = ? AND id = ?`
	queryDelete = `DELETE FROM birthdays WHERE owner = ? AND id = ?`
	querySource = `SELECT source FROM birthdays WHERE owner = ? AND id = ?`

	queryDismiss = `INSERT INTO dismissed_imports (owner, id) VALUES (?, ?)
	ON CONFLICT(owner, id) DO NOTHING`
	queryDismissed = `SELECT id FROM dismissed_imports WHERE owner = ?`

	querySeedGet  = `SELECT signature FROM seed_meta WHERE owner = ?`
	querySeedSave = `INSERT INTO seed_meta (owner, signature, seeded_at) VALUES (?, ?, ?)
	ON CONFLICT(owner) DO UPDATE SET signature = excluded.signature, seeded_at = excluded.seeded_at`
)

// SQLiteStore keeps records in a SQLite database. Several owners can share one
// database file; every statement is scoped to the owner the store was opened for.
type SQLiteStore struct {
	db    *sql.DB
	owner string
}

// OpenSQLite opens (and creates if needed) the database at path for owner.
func OpenSQLite(ctx context.Context, path, owner string) (*SQLiteStore, error) {
	if owner == "" {
		return nil, errors.New(config.ErrOwnerRequired)
	}
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	// A single connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{schemaBirthdays, schemaSeedMeta, schemaDismissed} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", config.ErrStoreSchema, err)
		}
	}
	return &SQLiteStore{db: db, owner: owner}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, queryList, s.owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	// NOCASE only folds ASCII; sort here so both backends agree on non-Latin names.
	sortEntries(out)
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, queryGet, s.owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

func (s *SQLiteStore) Create(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	} else if _, err := s.Get(ctx, e.ID); err == nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return Entry{}, err
	}
	if _, err := s.db.ExecContext(ctx, queryInsert, s.args(e)...); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	if _, err := s.db.ExecContext(ctx, queryUpsert, s.args(e)...); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, d Draft) (Entry, error) {
	res, err := s.db.ExecContext(ctx, queryUpdate, d.Name, d.Surname, d.DateOfBirth, d.Notes, s.owner, id)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	if err := requireRow(res, id); err != nil {
		return Entry{}, err
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	var source string
	err = tx.QueryRowContext(ctx, querySource, s.owner, id).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}

	if _, err := tx.ExecContext(ctx, queryDelete, s.owner, id); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	if source == config.SourceImport {
		if _, err := tx.ExecContext(ctx, queryDismiss, s.owner, id); err != nil {
			return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return nil
}

func (s *SQLiteStore) DismissedImports(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, queryDismissed, s.owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return out, nil
}

func (s *SQLiteStore) SeedSignature(ctx context.Context) (string, error) {
	var sig string
	err := s.db.QueryRowContext(ctx, querySeedGet, s.owner).Scan(&sig)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return sig, nil
}

func (s *SQLiteStore) SaveSeedSignature(ctx context.Context, signature string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, querySeedSave, s.owner, signature, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return nil
}

func (s *SQLiteStore) args(e Entry) []any {
	return []any{s.owner, e.ID, e.Name, e.Surname, e.DateOfBirth, e.Notes, e.Source, e.SeedID}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Name, &e.Surname, &e.DateOfBirth, &e.Notes, &e.Source, &e.SeedID)
	if errors.Is(err, sql.ErrNoRows) {
		return e, err
	}
	if err != nil {
		return e, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return e, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
