// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package localgit

import "testing"

func TestWithModifiedClosure(t *testing.T) {
	cases := []struct {
		name string
		in   ChangeFlags
		want ChangeFlags
	}{
		{"created implies modified", FlagCreated, FlagCreated | FlagModified},
		{"deleted implies modified", FlagDeleted, FlagDeleted | FlagModified},
		{"bare modified is untouched", FlagModified, FlagModified},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := withModified(c.in)
			if got != c.want {
				t.Fatalf("withModified(%v) = %v, want %v", c.in, got, c.want)
			}
			if !got.Modified() {
				t.Fatalf("expected modified bit set in %v", got)
			}
		})
	}
}

func TestExportImportChangesRoundTrip(t *testing.T) {
	changes := []Change{
		{Path: "a.txt", Flags: withModified(FlagCreated)},
		{Path: "b.txt", Flags: withModified(FlagDeleted)},
		{Path: "c.txt", Flags: FlagModified},
	}

	data, err := ExportChanges(changes)
	if err != nil {
		t.Fatalf("ExportChanges: %v", err)
	}

	got, err := ImportChanges(data)
	if err != nil {
		t.Fatalf("ImportChanges: %v", err)
	}
	if len(got) != len(changes) {
		t.Fatalf("got %d changes, want %d", len(got), len(changes))
	}
	for i := range changes {
		if got[i] != changes[i] {
			t.Fatalf("change %d: got %+v, want %+v", i, got[i], changes[i])
		}
	}
}

func TestExportChangesEmptyList(t *testing.T) {
	data, err := ExportChanges(nil)
	if err != nil {
		t.Fatalf("ExportChanges: %v", err)
	}
	got, err := ImportChanges(data)
	if err != nil {
		t.Fatalf("ImportChanges: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestFlagsFromUint64RoundTrip(t *testing.T) {
	f := withModified(FlagCreated)
	if FlagsFromUint64(f.Uint64()) != f {
		t.Fatalf("round trip through Uint64/FlagsFromUint64 changed value")
	}
}
