// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package localgit

import "errors"

// Common errors returned by Repository. Per-entry metadata failures during
// Backup and missing backup artifacts are NOT represented here: those are
// logged and skipped, or silently ignored, never a returned error.
var (
	// ErrNotARepository is returned when an operation that requires an
	// initialized repository is attempted before InitRepo succeeds.
	ErrNotARepository = errors.New("localgit: not a valid repository")

	// ErrRepositoryClosed is returned when an operation is attempted on
	// a Repository whose Close method has already run.
	ErrRepositoryClosed = errors.New("localgit: repository closed")
)
