// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package scan enumerates a working tree deterministically, the way
// fstree.Capture walks a filesystem to build a snapshot tree, but without
// any hashing: the snapshot engine only needs the set of paths and their
// file/directory nature.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one path observed under a working root.
type Entry struct {
	// RelPath is the path relative to the working root, using forward
	// slashes regardless of platform, matching the single encoding used
	// for relative_path throughout the metadata store.
	RelPath string

	// AbsPath is the entry's absolute, native path.
	AbsPath string

	// IsDir is true for directories, false for regular files.
	IsDir bool
}

// Scan walks root recursively, returning every file and directory except
// ones whose native path begins with excludeDir (the repository metadata
// directory, e.g. "<root>/.localgit"). Backup and comparison both use this
// same traversal over directories and files, so that empty directories
// are versioned.
//
// Entries are returned sorted by RelPath, so two scans of an unchanged
// tree always yield the same order even though that order isn't part of
// the engine's observable contract.
func Scan(root, excludeDir string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scan: walk %s: %w", path, err)
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(path, excludeDir) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("scan: relativize %s: %w", path, relErr)
		}

		entries = append(entries, Entry{
			RelPath: filepath.ToSlash(rel),
			AbsPath: path,
			IsDir:   d.IsDir(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })
	return entries, nil
}
