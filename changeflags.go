// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package localgit

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// ChangeFlags is the {created, deleted, modified} triple packed into a
// single 64-bit value: bit 0 = created, bit 8 = deleted, bit 16 = modified.
// The byte-aligned bit positions (rather than 0,1,2) are kept on purpose so
// the literal values bound into the CompareCommits SQL CASE in
// internal/store match this encoding exactly.
type ChangeFlags uint64

const (
	FlagCreated  ChangeFlags = 1 << 0
	FlagDeleted  ChangeFlags = 1 << 8
	FlagModified ChangeFlags = 1 << 16
)

// Created reports whether the created bit is set.
func (f ChangeFlags) Created() bool { return f&FlagCreated != 0 }

// Deleted reports whether the deleted bit is set.
func (f ChangeFlags) Deleted() bool { return f&FlagDeleted != 0 }

// Modified reports whether the modified bit is set.
func (f ChangeFlags) Modified() bool { return f&FlagModified != 0 }

// Uint64 returns the little-endian-stable wire value of the flags.
func (f ChangeFlags) Uint64() uint64 { return uint64(f) }

// FlagsFromUint64 reconstructs ChangeFlags from its wire value.
func FlagsFromUint64(v uint64) ChangeFlags { return ChangeFlags(v) }

// withModified sets the modified bit whenever any other bit is set, so a
// created or deleted entry is always also reported as modified.
func withModified(f ChangeFlags) ChangeFlags {
	if f&(FlagCreated|FlagDeleted) != 0 {
		f |= FlagModified
	}
	return f
}

// Change describes a single path's difference, as returned by
// CompareAgainstWorkingTree and CompareCommits.
type Change struct {
	Path  string
	Flags ChangeFlags
}

// changeWire is the on-the-wire msgpack shape for a Change, with
// numeric field tags matching this codebase's other msgpack structures.
type changeWire struct {
	Path  string `msgpack:"1"`
	Flags uint64 `msgpack:"2"`
}

// ExportChanges encodes a list of Change into a deterministic msgpack
// byte stream, sorting map keys for stability across encodes (the same
// convention fstree.serializeTree uses for its tree objects).
func ExportChanges(changes []Change) ([]byte, error) {
	wire := make([]changeWire, len(changes))
	for i, c := range changes {
		wire[i] = changeWire{Path: c.Path, Flags: c.Flags.Uint64()}
	}

	buf := &bytes.Buffer{}
	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ImportChanges decodes a msgpack byte stream produced by ExportChanges.
func ImportChanges(data []byte) ([]Change, error) {
	var wire []changeWire
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	out := make([]Change, len(wire))
	for i, w := range wire {
		out[i] = Change{Path: w.Path, Flags: FlagsFromUint64(w.Flags)}
	}
	return out, nil
}
