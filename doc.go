// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package localgit is a local, single-user snapshot-based version control
// engine for an arbitrary directory tree.
//
// A Repository records point-in-time snapshots ("commits") of every
// regular file and directory under a working root, persists file content
// into a content-bearing backup store under "<root>/.localgit/", and
// exposes four operations that enforce the engine's invariants: Backup,
// CompareAgainstWorkingTree, CompareCommits, and Restore.
//
// # Basic usage
//
//	repo, err := localgit.New("/path/to/project")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
//	// InitRepo opens an existing repository or creates a new one; every
//	// other operation returns ErrNotARepository until it has run.
//	if err := repo.InitRepo(); err != nil {
//	    log.Fatal(err)
//	}
//
//	commitID, err := repo.Backup("initial import", "me")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The engine is designed for a single-threaded, single-writer process: one
// Repository instance owns its database connection and backup directory
// for its whole lifetime, and none of its operations offer cancellation —
// they run to completion or return a fatal error.
package localgit
