// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fleet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fakeNow() time.Time {
	return time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)
}

func TestBlacklistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_workers.json")
	bl, err := LoadBlacklist(path)
	if err != nil {
		t.Fatalf("LoadBlacklist() failed: %s", err)
	}
	if got := bl.Entries(); len(got) != 0 {
		t.Fatalf("fresh blacklist has %d entries, want 0", len(got))
	}

	if err := bl.Add("w1", "unresponsive", fakeNow()); err != nil {
		t.Fatalf("Add() failed: %s", err)
	}
	if err := bl.Add("w2", "filesystem corrupted", fakeNow().Add(time.Minute)); err != nil {
		t.Fatalf("Add() failed: %s", err)
	}

	reloaded, err := LoadBlacklist(path)
	if err != nil {
		t.Fatalf("LoadBlacklist() failed: %s", err)
	}
	want := map[string]BlacklistEntry{
		"w1": {Reason: "unresponsive", Timestamp: fakeNow()},
		"w2": {Reason: "filesystem corrupted", Timestamp: fakeNow().Add(time.Minute)},
	}
	if diff := cmp.Diff(want, reloaded.Entries()); diff != "" {
		t.Errorf("unexpected entries after reload (-want +got):\n%s", diff)
	}
	if !reloaded.Contains("w1") || !reloaded.Contains("w2") {
		t.Errorf("Contains() lost an entry")
	}
	if reloaded.Contains("w3") {
		t.Errorf("Contains(%q) = true for a worker never added", "w3")
	}
}

func TestBlacklistClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_workers.json")
	bl, err := LoadBlacklist(path)
	if err != nil {
		t.Fatalf("LoadBlacklist() failed: %s", err)
	}
	if err := bl.Add("w1", "unresponsive", fakeNow()); err != nil {
		t.Fatalf("Add() failed: %s", err)
	}
	if err := bl.Clear(); err != nil {
		t.Fatalf("Clear() failed: %s", err)
	}
	if bl.Contains("w1") {
		t.Errorf("entry survived Clear()")
	}
	reloaded, err := LoadBlacklist(path)
	if err != nil {
		t.Fatalf("LoadBlacklist() failed: %s", err)
	}
	if got := reloaded.Entries(); len(got) != 0 {
		t.Errorf("cleared blacklist reloaded with %d entries, want 0", len(got))
	}
}

func TestBlacklistMissingFileIsEmpty(t *testing.T) {
	bl, err := LoadBlacklist(filepath.Join(t.TempDir(), "does_not_exist.json"))
	if err != nil {
		t.Fatalf("LoadBlacklist() failed: %s", err)
	}
	if got := bl.Entries(); len(got) != 0 {
		t.Errorf("got %d entries from a missing file, want 0", len(got))
	}
}
