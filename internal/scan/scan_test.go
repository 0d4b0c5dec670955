// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScanSortedAndRelative(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "b.txt"), "b")
	mustWriteFile(t, filepath.Join(root, "a.txt"), "a")
	mustWriteFile(t, filepath.Join(root, "sub", "c.txt"), "c")

	entries, err := Scan(root, filepath.Join(root, ".localgit"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.RelPath)
	}
	want := []string{"a.txt", "b.txt", "sub", "sub/c.txt"}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("got %v, want %v", paths, want)
		}
	}
}

func TestScanExcludesMetaDir(t *testing.T) {
	root := t.TempDir()
	metaDir := filepath.Join(root, ".localgit")
	mustWriteFile(t, filepath.Join(metaDir, ".db"), "binary")
	mustWriteFile(t, filepath.Join(root, "keep.txt"), "keep")

	entries, err := Scan(root, metaDir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, e := range entries {
		if e.RelPath == ".localgit" || e.RelPath == ".localgit/.db" {
			t.Fatalf("expected metadata directory excluded, found %s", e.RelPath)
		}
	}
	if len(entries) != 1 || entries[0].RelPath != "keep.txt" {
		t.Fatalf("expected only keep.txt, got %+v", entries)
	}
}

func TestScanIncludesEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	entries, err := Scan(root, filepath.Join(root, ".localgit"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 || entries[0].RelPath != "empty" || !entries[0].IsDir {
		t.Fatalf("expected empty dir entry, got %+v", entries)
	}
}
