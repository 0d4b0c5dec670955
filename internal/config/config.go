// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package config loads ambient defaults for the repository engine from
// environment variables, optionally overlaid from a .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the tunable, non-schema-affecting defaults of a
// Repository: how its SQLite handle is opened and what author name a
// commit gets when the caller doesn't supply one.
type Config struct {
	// DefaultAuthor is used for a Commit whose author is empty.
	DefaultAuthor string

	// JournalMode is set via `PRAGMA journal_mode` on open.
	JournalMode string

	// BusyTimeout bounds how long SQLite waits on a locked database
	// before returning SQLITE_BUSY, matching the engine's single-writer model.
	BusyTimeout time.Duration
}

const (
	defaultAuthor      = "anonymous"
	defaultJournalMode = "WAL"
	defaultBusyTimeout = 5 * time.Second
)

// Load reads LOCALGIT_-prefixed environment variables, best-effort
// overlaid from .env files in the current directory and its two parents
// (each one that exists is read; earlier files win). Missing or malformed
// values fall back to defaults rather than failing, since none of these
// settings is load-bearing for correctness.
func Load() Config {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		_ = godotenv.Load(p)
	}

	cfg := Config{
		DefaultAuthor: firstNonEmpty(os.Getenv("LOCALGIT_DEFAULT_AUTHOR"), defaultAuthor),
		JournalMode:   firstNonEmpty(strings.ToUpper(strings.TrimSpace(os.Getenv("LOCALGIT_JOURNAL_MODE"))), defaultJournalMode),
		BusyTimeout:   defaultBusyTimeout,
	}

	if ms := strings.TrimSpace(os.Getenv("LOCALGIT_BUSY_TIMEOUT_MS")); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n > 0 {
			cfg.BusyTimeout = time.Duration(n) * time.Millisecond
		}
	}

	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
