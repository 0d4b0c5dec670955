// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package store implements the metadata store (schema and queries) behind
// the snapshot engine: the Entry, EntryHistory, Commit and CommitSnapshot
// tables of the data model, and the handful of parameterized queries the
// engine issues against them. No other SQL leaves this package.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smjh/localgit/internal/config"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting callers run a
// sequence of statements either directly or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps the SQLite handle backing a repository's metadata.
type Store struct {
	db  *sql.DB
	cfg config.Config
}

// CommitRow is one row of the commit table.
type CommitRow struct {
	ID        int64
	Message   string
	Author    string
	Timestamp int64
}

// CompareRow is one classified row out of the CompareCommits query.
type CompareRow struct {
	RelPath string
	Action  uint64
}

// Open creates (if needed) the database file at dbPath and opens a
// connection to it, applying the journal mode and busy timeout from cfg.
func Open(dbPath string, cfg config.Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d", dbPath, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// Single-writer engine: one connection avoids SQLITE_BUSY races
	// between independent *sql.DB-pooled connections against one file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA journal_mode=%s", cfg.JournalMode)); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set journal mode: %w", err)
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS "entry" (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	relative_path TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entry_relative_path ON entry(relative_path);
CREATE TABLE IF NOT EXISTS "entry_history" (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	entry_id INTEGER DEFAULT(0) NOT NULL,
	is_directory INTEGER DEFAULT(0) NOT NULL,
	file_size INTEGER DEFAULT(0) NOT NULL,
	"timestamp" INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entry_history_entry_id ON entry_history(entry_id);
CREATE TABLE IF NOT EXISTS "commit" (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	message TEXT DEFAULT ('') NOT NULL,
	author TEXT DEFAULT ('anonymous') NOT NULL,
	"timestamp" INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS "commit_snapshot" (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	commit_id INTEGER DEFAULT(0) NOT NULL,
	entry_id INTEGER DEFAULT(0) NOT NULL,
	history_id INTEGER DEFAULT(0) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_commit_snapshot_commit_id ON commit_snapshot(commit_id);
CREATE INDEX IF NOT EXISTS idx_commit_snapshot_entry_id ON commit_snapshot(entry_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

// DefaultAuthor returns the configured fallback commit author.
func (s *Store) DefaultAuthor() string {
	return s.cfg.DefaultAuthor
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a transaction for a Backup operation.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// InsertCommit inserts a new commit row and returns its id, or 0 if the
// insert produced no row.
func (s *Store) InsertCommit(ctx context.Context, tx execer, message, author string, timestamp int64) (int64, error) {
	if author == "" {
		author = s.cfg.DefaultAuthor
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO "commit"(message, author, "timestamp") VALUES(?, ?, ?)`,
		message, author, timestamp)
	if err != nil {
		return 0, fmt.Errorf("store: insert commit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: commit id: %w", err)
	}
	return id, nil
}

// LatestHistory finds the most recent EntryHistory bound into any commit
// for the given relative path. Ties on timestamp favor the highest
// history id, for determinism.
func (s *Store) LatestHistory(ctx context.Context, tx execer, relPath string) (entryID, historyID, timestamp int64, found bool, err error) {
	row := tx.QueryRowContext(ctx, `
SELECT e.id, eh.id, eh."timestamp"
FROM commit_snapshot cs
JOIN entry e ON cs.entry_id = e.id
JOIN entry_history eh ON cs.history_id = eh.id
WHERE e.relative_path = ?
ORDER BY eh."timestamp" DESC, eh.id DESC
LIMIT 1`, relPath)

	if scanErr := row.Scan(&entryID, &historyID, &timestamp); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, 0, 0, false, nil
		}
		return 0, 0, 0, false, fmt.Errorf("store: latest history: %w", scanErr)
	}
	return entryID, historyID, timestamp, true, nil
}

// InsertEntry creates a new Entry for a relative path not seen before.
func (s *Store) InsertEntry(ctx context.Context, tx execer, relPath string) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO entry(relative_path) VALUES(?)`, relPath)
	if err != nil {
		return 0, fmt.Errorf("store: insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: entry id: %w", err)
	}
	return id, nil
}

// InsertEntryHistory appends a new version row for an Entry.
func (s *Store) InsertEntryHistory(ctx context.Context, tx execer, entryID, isDirectory, fileSize, timestamp int64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO entry_history(entry_id, is_directory, file_size, "timestamp") VALUES(?, ?, ?, ?)`,
		entryID, isDirectory, fileSize, timestamp)
	if err != nil {
		return 0, fmt.Errorf("store: insert entry_history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: entry_history id: %w", err)
	}
	return id, nil
}

// InsertCommitSnapshot binds an EntryHistory into a Commit.
func (s *Store) InsertCommitSnapshot(ctx context.Context, tx execer, commitID, entryID, historyID int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO commit_snapshot(commit_id, entry_id, history_id) VALUES(?, ?, ?)`,
		commitID, entryID, historyID)
	if err != nil {
		return fmt.Errorf("store: insert commit_snapshot: %w", err)
	}
	return nil
}

// ListCommits returns commits ordered by descending id.
func (s *Store) ListCommits(ctx context.Context, begin, count int) ([]CommitRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message, author, "timestamp" FROM "commit" ORDER BY id DESC LIMIT ? OFFSET ?`,
		count, begin)
	if err != nil {
		return nil, fmt.Errorf("store: list commits: %w", err)
	}
	defer rows.Close()

	var out []CommitRow
	for rows.Next() {
		var c CommitRow
		if err := rows.Scan(&c.ID, &c.Message, &c.Author, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan commit: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FileMapTimestamps returns, for every Entry bound into commitID, the
// relative path and the timestamp of the EntryHistory it resolves to.
// The caller turns (relative_path, timestamp) into a backup artifact path.
func (s *Store) FileMapTimestamps(ctx context.Context, commitID int64) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT e.relative_path, eh."timestamp"
FROM commit_snapshot cs
JOIN entry e ON cs.entry_id = e.id
JOIN entry_history eh ON cs.history_id = eh.id
WHERE cs.commit_id = ?`, commitID)
	if err != nil {
		return nil, fmt.Errorf("store: file map: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var rp string
		var ts int64
		if err := rows.Scan(&rp, &ts); err != nil {
			return nil, fmt.Errorf("store: scan file map row: %w", err)
		}
		out[rp] = ts
	}
	return out, rows.Err()
}

// CompareCommits classifies every Entry touched by commit a or commit b
// into created/deleted/modified. Precedence when a path is absent from
// either side: NULL-in-A first, then NULL-in-B, then inequality, else
// unchanged (excluded from the result).
func (s *Store) CompareCommits(ctx context.Context, a, b int64, addFlag, delFlag, modFlag uint64) ([]CompareRow, error) {
	const base = `
SELECT
	e.relative_path AS relative_path,
	CASE
		WHEN ccs1."timestamp" IS NULL THEN ?
		WHEN ccs2."timestamp" IS NULL THEN ?
		WHEN ccs1."timestamp" <> ccs2."timestamp" THEN ?
		ELSE 0
	END AS action
FROM entry e
LEFT JOIN (
	SELECT cs1.entry_id, eh1."timestamp"
	FROM commit_snapshot cs1
	JOIN entry_history eh1 ON cs1.history_id = eh1.id
	WHERE cs1.commit_id = ?
) AS ccs1 ON e.id = ccs1.entry_id
LEFT JOIN (
	SELECT cs2.entry_id, eh2."timestamp"
	FROM commit_snapshot cs2
	JOIN entry_history eh2 ON cs2.history_id = eh2.id
	WHERE cs2.commit_id = ?
) AS ccs2 ON e.id = ccs2.entry_id
WHERE ccs1."timestamp" IS NOT NULL OR ccs2."timestamp" IS NOT NULL`

	query := "SELECT relative_path, action FROM (" + base + ") WHERE action <> 0"

	rows, err := s.db.QueryContext(ctx, query, int64(addFlag), int64(delFlag), int64(modFlag), a, b)
	if err != nil {
		return nil, fmt.Errorf("store: compare commits: %w", err)
	}
	defer rows.Close()

	var out []CompareRow
	for rows.Next() {
		var r CompareRow
		if err := rows.Scan(&r.RelPath, &r.Action); err != nil {
			return nil, fmt.Errorf("store: scan compare row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
