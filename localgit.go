// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package localgit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/smjh/localgit/internal/backupfs"
	"github.com/smjh/localgit/internal/changedet"
	"github.com/smjh/localgit/internal/config"
	"github.com/smjh/localgit/internal/scan"
	"github.com/smjh/localgit/internal/store"
)

const repoMetaDirName = ".localgit"

// CommitInfo describes one row of the commit history.
type CommitInfo struct {
	ID        int64
	Message   string
	Author    string
	Timestamp time.Time
}

// Repository is a snapshot engine rooted at a single working directory. It
// owns its metadata store connection and backup directory for its whole
// lifetime; construct one per process, call Close when done with it.
type Repository struct {
	root    string
	metaDir string
	dbPath  string

	id     string
	logger *slog.Logger
	now    func() time.Time
	cfg    config.Config

	store  *store.Store
	backup *backupfs.Store
	closed bool
}

// Option configures a Repository at construction time.
type Option func(*repoOptions)

type repoOptions struct {
	logger *slog.Logger
	clock  func() time.Time
	cfg    config.Config
}

// WithLogger overrides the default logger (slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *repoOptions) { o.logger = l }
}

// WithClock overrides the clock used to stamp commits, so tests can drive
// Backup deterministically instead of relying on wall-clock time. Default
// is time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *repoOptions) { o.clock = clock }
}

// New returns a Repository rooted at the given working directory. It
// resolves an absolute path and loads config defaults, but creates nothing
// on disk and opens no database: IsValidRepo detects an existing on-disk
// repository, and InitRepo must run (to open or create it) before any
// other operation.
func New(root string, opts ...Option) (*Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("localgit: resolve root %s: %w", root, err)
	}

	options := repoOptions{
		logger: slog.Default(),
		clock:  time.Now,
		cfg:    config.Load(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	id := uuid.NewString()
	metaDir := filepath.Join(absRoot, repoMetaDirName)
	return &Repository{
		root:    absRoot,
		metaDir: metaDir,
		dbPath:  filepath.Join(metaDir, ".db"),
		id:      id,
		logger:  options.logger.With("repo", id),
		now:     options.clock,
		cfg:     options.cfg,
		backup:  backupfs.New(metaDir),
	}, nil
}

// IsValidRepo reports whether the working root already has an initialized
// repository: a ".localgit" directory containing a ".db" file.
func (r *Repository) IsValidRepo() bool {
	dirInfo, err := os.Stat(r.metaDir)
	if err != nil || !dirInfo.IsDir() {
		return false
	}
	dbInfo, err := os.Stat(r.dbPath)
	return err == nil && dbInfo.Mode().IsRegular()
}

// InitRepo ensures the metadata file exists, opens a connection, and
// idempotently creates the schema. Safe to call on an already-initialized
// repository, and idempotent across calls on this Repository instance.
func (r *Repository) InitRepo() error {
	if r.closed {
		return ErrRepositoryClosed
	}
	if r.store != nil {
		return nil
	}
	s, err := store.Open(r.dbPath, r.cfg)
	if err != nil {
		return fmt.Errorf("localgit: init repo: %w", err)
	}
	r.store = s
	r.logger.Info("localgit: repository initialized", "root", r.root)
	return nil
}

// Close releases the metadata store's database handle. Safe to call
// multiple times.
func (r *Repository) Close() error {
	r.closed = true
	if r.store == nil {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	return err
}

// ListCommits returns commits ordered by descending id, skipping the
// first begin and taking up to count.
func (r *Repository) ListCommits(begin, count int) ([]CommitInfo, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}
	if r.store == nil {
		return nil, ErrNotARepository
	}
	rows, err := r.store.ListCommits(context.Background(), begin, count)
	if err != nil {
		return nil, fmt.Errorf("localgit: list commits: %w", err)
	}

	out := make([]CommitInfo, len(rows))
	for i, row := range rows {
		out[i] = CommitInfo{
			ID:        row.ID,
			Message:   row.Message,
			Author:    row.Author,
			Timestamp: time.Unix(row.Timestamp, 0),
		}
	}
	return out, nil
}

// Backup captures the working tree into a new commit. It returns the new
// commit id, or 0 if the commit row itself couldn't be inserted — in which
// case no further work was performed. It also returns 0, with an error,
// when the working-tree scan, a backup copy, or the database transaction
// fails; the whole Backup's metadata is then rolled back.
func (r *Repository) Backup(message, author string) (int64, error) {
	if r.closed {
		return 0, ErrRepositoryClosed
	}
	if r.store == nil {
		return 0, ErrNotARepository
	}
	ctx := context.Background()
	nowTS := r.now().Unix()

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("localgit: backup: %w", err)
	}

	commitID, err := r.store.InsertCommit(ctx, tx, message, author, nowTS)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("localgit: backup: %w", err)
	}
	if commitID == 0 {
		_ = tx.Rollback()
		return 0, nil
	}

	entries, err := scan.Scan(r.root, r.metaDir)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("localgit: backup: scan working tree: %w", err)
	}

	commitDirReady := false

	for _, e := range entries {
		isDirectory := int64(0)
		var fileSize int64
		if e.IsDir {
			isDirectory = 1
		} else {
			info, statErr := os.Stat(e.AbsPath)
			if statErr != nil {
				r.logger.Warn("localgit: skip entry", "path", e.RelPath, "err", statErr)
				continue
			}
			fileSize = info.Size()
		}

		entryID, prevHistoryID, prevTS, found, err := r.store.LatestHistory(ctx, tx, e.RelPath)
		if err != nil {
			r.logger.Warn("localgit: skip entry", "path", e.RelPath, "err", err)
			continue
		}

		var historyID int64
		shouldCopy := false

		switch {
		case found:
			backupPath := r.backup.ArtifactPath(prevTS, e.RelPath)
			modified, cmpErr := changedet.Modified(backupPath, e.AbsPath)
			if cmpErr != nil {
				// The backup artifact for the prior version is gone; treat
				// this as a change so a fresh copy is captured.
				modified = true
			}
			if !modified {
				historyID = prevHistoryID
				break
			}
			newHistoryID, insErr := r.store.InsertEntryHistory(ctx, tx, entryID, isDirectory, fileSize, nowTS)
			if insErr != nil {
				r.logger.Warn("localgit: skip entry", "path", e.RelPath, "err", insErr)
				continue
			}
			historyID = newHistoryID
			shouldCopy = true

		default:
			newEntryID, insErr := r.store.InsertEntry(ctx, tx, e.RelPath)
			if insErr != nil {
				r.logger.Warn("localgit: skip entry", "path", e.RelPath, "err", insErr)
				continue
			}
			entryID = newEntryID
			newHistoryID, insErr := r.store.InsertEntryHistory(ctx, tx, entryID, isDirectory, fileSize, nowTS)
			if insErr != nil {
				r.logger.Warn("localgit: skip entry", "path", e.RelPath, "err", insErr)
				continue
			}
			historyID = newHistoryID
			shouldCopy = true
		}

		if err := r.store.InsertCommitSnapshot(ctx, tx, commitID, entryID, historyID); err != nil {
			r.logger.Warn("localgit: skip entry", "path", e.RelPath, "err", err)
			continue
		}

		if !shouldCopy {
			continue
		}

		if !commitDirReady {
			if err := r.backup.EnsureCommitDir(nowTS); err != nil {
				_ = tx.Rollback()
				return 0, fmt.Errorf("localgit: backup: %w", err)
			}
			commitDirReady = true
		}

		dest := r.backup.ArtifactPath(nowTS, e.RelPath)
		if e.IsDir {
			if err := r.backup.CreateDir(dest); err != nil {
				_ = tx.Rollback()
				return 0, fmt.Errorf("localgit: backup: %w", err)
			}
			continue
		}
		if err := r.backup.CopyFile(e.AbsPath, dest); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("localgit: backup: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("localgit: backup: commit transaction: %w", err)
	}
	return commitID, nil
}

// fileMap builds the relative-path -> backup-artifact-path map for a
// commit, used by both comparison and restore.
func (r *Repository) fileMap(ctx context.Context, commitID int64) (map[string]string, error) {
	timestamps, err := r.store.FileMapTimestamps(ctx, commitID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(timestamps))
	for relPath, ts := range timestamps {
		m[relPath] = r.backup.ArtifactPath(ts, relPath)
	}
	return m, nil
}

// CompareAgainstWorkingTree diffs a commit against the live working tree.
func (r *Repository) CompareAgainstWorkingTree(commitID int64) ([]Change, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}
	if r.store == nil {
		return nil, ErrNotARepository
	}
	ctx := context.Background()

	m, err := r.fileMap(ctx, commitID)
	if err != nil {
		return nil, fmt.Errorf("localgit: compare against working tree: %w", err)
	}

	entries, err := scan.Scan(r.root, r.metaDir)
	if err != nil {
		return nil, fmt.Errorf("localgit: compare against working tree: %w", err)
	}

	var changes []Change
	for _, e := range entries {
		backupPath, ok := m[e.RelPath]
		if !ok {
			changes = append(changes, Change{Path: e.RelPath, Flags: withModified(FlagCreated)})
			continue
		}
		modified, cmpErr := changedet.Modified(backupPath, e.AbsPath)
		if cmpErr != nil {
			// Backup artifact missing: silently skip.
			delete(m, e.RelPath)
			continue
		}
		if modified {
			changes = append(changes, Change{Path: e.RelPath, Flags: withModified(FlagModified)})
		}
		delete(m, e.RelPath)
	}

	for relPath, backupPath := range m {
		if _, exists := backupfs.Stat(backupPath); !exists {
			continue
		}
		changes = append(changes, Change{Path: relPath, Flags: withModified(FlagDeleted)})
	}

	return changes, nil
}

// CompareCommits diffs two commits purely from metadata, with no
// filesystem access.
func (r *Repository) CompareCommits(a, b int64) ([]Change, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}
	if r.store == nil {
		return nil, ErrNotARepository
	}

	addFlag := uint64(withModified(FlagCreated))
	delFlag := uint64(withModified(FlagDeleted))
	modFlag := uint64(FlagModified)

	rows, err := r.store.CompareCommits(context.Background(), a, b, addFlag, delFlag, modFlag)
	if err != nil {
		return nil, fmt.Errorf("localgit: compare commits: %w", err)
	}

	changes := make([]Change, len(rows))
	for i, row := range rows {
		changes[i] = Change{Path: row.RelPath, Flags: FlagsFromUint64(row.Action)}
	}
	return changes, nil
}

// Restore reconciles the working tree to match a commit, returning the
// relative paths now present in the tree because of it.
func (r *Repository) Restore(commitID int64) ([]string, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}
	if r.store == nil {
		return nil, ErrNotARepository
	}
	ctx := context.Background()

	m, err := r.fileMap(ctx, commitID)
	if err != nil {
		return nil, fmt.Errorf("localgit: restore: %w", err)
	}

	entries, err := scan.Scan(r.root, r.metaDir)
	if err != nil {
		return nil, fmt.Errorf("localgit: restore: %w", err)
	}

	var restored []string
	for _, e := range entries {
		backupPath, ok := m[e.RelPath]
		if !ok {
			if err := r.backup.Remove(e.AbsPath); err != nil {
				r.logger.Error("localgit: restore failed", "path", e.RelPath, "err", err)
				return restored, fmt.Errorf("localgit: restore: %w", err)
			}
			continue
		}

		isDir, exists := backupfs.Stat(backupPath)
		if !exists {
			// Missing backup artifact: skip silently, neither restored nor
			// removed, and absent from the result.
			delete(m, e.RelPath)
			continue
		}

		if isDir {
			if err := r.backup.CreateDir(e.AbsPath); err != nil {
				r.logger.Error("localgit: restore failed", "path", e.RelPath, "err", err)
				return restored, fmt.Errorf("localgit: restore: %w", err)
			}
		} else {
			modified, cmpErr := changedet.Modified(backupPath, e.AbsPath)
			if cmpErr != nil {
				r.logger.Error("localgit: restore failed", "path", e.RelPath, "err", cmpErr)
				return restored, fmt.Errorf("localgit: restore: %w", cmpErr)
			}
			if modified {
				if err := r.backup.CopyFile(backupPath, e.AbsPath); err != nil {
					r.logger.Error("localgit: restore failed", "path", e.RelPath, "err", err)
					return restored, fmt.Errorf("localgit: restore: %w", err)
				}
			}
		}
		restored = append(restored, e.RelPath)
		delete(m, e.RelPath)
	}

	for relPath, backupPath := range m {
		isDir, exists := backupfs.Stat(backupPath)
		if !exists {
			continue
		}
		dest := filepath.Join(r.root, filepath.FromSlash(relPath))
		if isDir {
			if err := r.backup.CreateDir(dest); err != nil {
				r.logger.Error("localgit: restore failed", "path", relPath, "err", err)
				return restored, fmt.Errorf("localgit: restore: %w", err)
			}
		} else {
			if err := r.backup.CopyFile(backupPath, dest); err != nil {
				r.logger.Error("localgit: restore failed", "path", relPath, "err", err)
				return restored, fmt.Errorf("localgit: restore: %w", err)
			}
		}
		restored = append(restored, relPath)
	}

	return restored, nil
}
