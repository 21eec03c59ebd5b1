// Package snapshot copies a task store into a SQLite database file and back.
// A snapshot is a point-in-time export: it is rewritten in full on every
// Export and never edited in place.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/imkarma/tasktree/internal/document"
	"github.com/imkarma/tasktree/internal/store"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	parent_id   TEXT,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'not_started',
	memo        TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
`

// taskColumns is the standard column list for task queries.
const taskColumns = `id, parent_id, name, status, memo, created_at, updated_at`

// Export writes every task of s into a fresh database at path, replacing
// any existing file.
func Export(ctx context.Context, path string, s *store.Store) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove old snapshot: %w", err)
	}

	db, err := open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range s.All() {
		var parent sql.NullString
		if t.ParentID != nil {
			parent = sql.NullString{String: *t.ParentID, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			t.ID, parent, t.Name, string(t.Status), t.Memo,
			t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	// Leave a single self-contained file that Import can open read-only.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=DELETE"); err != nil {
		return fmt.Errorf("set journal mode: %w", err)
	}
	return nil
}

// Import reads the tasks table at path into a new store. The file is opened
// read-only. Rows get the same leniency as document records; a row that
// cannot be read, or a file without a tasks table, is reported as
// document.ErrCorruptDocument.
func Import(ctx context.Context, path string, opts ...store.Option) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}

	db, err := openReadOnly(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []store.Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}

	s, err := store.Restore(tasks, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrCorruptDocument, err)
	}
	return s, nil
}

// open opens (or creates) the database and makes sure the schema exists.
func open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// openReadOnly opens an existing snapshot without touching it and checks
// that it holds a tasks table.
func openReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var n int
	err = db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'tasks'`).Scan(&n)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %w", document.ErrCorruptDocument, path, err)
	}
	if n == 0 {
		db.Close()
		return nil, fmt.Errorf("%w: %s has no tasks table", document.ErrCorruptDocument, path)
	}
	return db, nil
}

// scanTaskRows scans a single task from *sql.Rows.
func scanTaskRows(rows *sql.Rows) (store.Task, error) {
	var (
		t                store.Task
		parent           sql.NullString
		status           string
		created, updated string
	)
	if err := rows.Scan(&t.ID, &parent, &t.Name, &status, &t.Memo, &created, &updated); err != nil {
		return t, fmt.Errorf("scan task: %w", err)
	}

	if parent.Valid && parent.String != "" {
		t.ParentID = store.StringPtr(parent.String)
	}
	if strings.TrimSpace(t.Name) == "" {
		t.Name = document.UntitledName
	}

	t.Status = store.StatusNotStarted
	if strings.TrimSpace(status) != "" {
		st, err := store.ParseStatus(status)
		if err != nil {
			return t, fmt.Errorf("%w: task %s: %w", document.ErrCorruptDocument, t.ID, err)
		}
		t.Status = st
	}

	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return t, fmt.Errorf("%w: task %s: created_at: %w", document.ErrCorruptDocument, t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return t, fmt.Errorf("%w: task %s: updated_at: %w", document.ErrCorruptDocument, t.ID, err)
	}
	return t, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
