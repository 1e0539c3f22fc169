package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS named_tables (
	name       TEXT PRIMARY KEY,
	seq        INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS table_rows (
	id         TEXT PRIMARY KEY,
	table_name TEXT NOT NULL REFERENCES named_tables(name) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	cells      TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_table_rows_position ON table_rows(table_name, position);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM named_tables WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: lookup table %q", name)
	}
	return n > 0, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, name string) (types.Table, error) {
	ok, err := s.exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, eris.Wrapf(ErrTableNotFound, "sqlite: %q", name)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM table_rows WHERE table_name = ? ORDER BY position`,
		name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query rows of %q", name)
	}
	defer rows.Close()

	table := types.Table{}
	for rows.Next() {
		var cellsJSON string
		if err := rows.Scan(&cellsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		var row types.Row
		if err := json.Unmarshal([]byte(cellsJSON), &row); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal row of %q", name)
		}
		if row == nil {
			row = types.Row{}
		}
		table = append(table, row)
	}
	return table, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

// GetOrCreate implements Store.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, name string, header types.Row) (types.Table, bool, error) {
	return getOrCreate(ctx, s, name, header)
}

// Put implements Store. The table is replaced in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, name string, t types.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO named_tables (name, seq, created_at, updated_at)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM named_tables), ?, ?)
		 ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`,
		name, now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert table %q", name)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM table_rows WHERE table_name = ?`, name); err != nil {
		return eris.Wrapf(err, "sqlite: clear table %q", name)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO table_rows (id, table_name, position, cells) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for i, row := range t {
		cellsJSON, err := json.Marshal(row)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal row")
		}
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), name, i, string(cellsJSON)); err != nil {
			return eris.Wrapf(err, "sqlite: insert row %d of %q", i, name)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM named_tables ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tables")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan table name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: iterate tables")
}
