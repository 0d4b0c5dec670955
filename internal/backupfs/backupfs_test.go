// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package backupfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArtifactPathLayout(t *testing.T) {
	s := New("/repo/.localgit")
	got := s.ArtifactPath(1000, "sub/file.txt")
	want := filepath.Join("/repo/.localgit", "1000", "sub", "file.txt")
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCopyFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, ".localgit"))

	src := filepath.Join(dir, "source.txt")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	dst := s.ArtifactPath(1, "nested/dest.txt")
	if err := s.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q, want %q", got, "payload")
	}
}

func TestCopyFileOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	os.WriteFile(src, []byte("new"), 0o644)
	os.WriteFile(dst, []byte("much longer old content"), 0o644)

	if err := s.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "new" {
		t.Fatalf("expected dst truncated to new content, got %q", got)
	}
}

func TestRemoveDirectoryRecursive(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	target := filepath.Join(dir, "tree")
	os.MkdirAll(filepath.Join(target, "child"), 0o755)
	os.WriteFile(filepath.Join(target, "child", "f.txt"), []byte("x"), 0o644)

	if err := s.Remove(target); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("expected target removed, stat err = %v", err)
	}
}

func TestStatMissingIsNotError(t *testing.T) {
	_, exists := Stat(filepath.Join(t.TempDir(), "nope"))
	if exists {
		t.Fatalf("expected missing path to report !exists")
	}
}

func TestStatReportsDirectoryness(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	os.WriteFile(file, []byte("x"), 0o644)

	isDir, exists := Stat(dir)
	if !exists || !isDir {
		t.Fatalf("expected dir to report isDir=true exists=true, got isDir=%v exists=%v", isDir, exists)
	}
	isDir, exists = Stat(file)
	if !exists || isDir {
		t.Fatalf("expected file to report isDir=false exists=true, got isDir=%v exists=%v", isDir, exists)
	}
}

func TestEnsureCommitDir(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.EnsureCommitDir(42); err != nil {
		t.Fatalf("EnsureCommitDir: %v", err)
	}
	info, err := os.Stat(s.CommitDir(42))
	if err != nil || !info.IsDir() {
		t.Fatalf("expected commit dir to exist, err=%v", err)
	}
}
