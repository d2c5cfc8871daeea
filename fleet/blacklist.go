// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fleet

import (
	"sync"
	"time"

	"go.fleet.dev/fleetrunner/lib/jsonutil"
	"go.fleet.dev/fleetrunner/lib/osmisc"
)

// BlacklistEntry records why and when a worker was excluded.
type BlacklistEntry struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Blacklist is the persisted set of workers excluded from discovery after
// unrecoverable failures. A blacklisted worker is never selected for new
// work until explicitly cleared.
type Blacklist struct {
	mu      sync.Mutex
	path    string
	entries map[string]BlacklistEntry
}

// LoadBlacklist reads the blacklist at path. A missing file yields an
// empty blacklist; the file appears on the first Add.
func LoadBlacklist(path string) (*Blacklist, error) {
	b := &Blacklist{path: path, entries: make(map[string]BlacklistEntry)}
	exists, err := osmisc.FileExists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := jsonutil.ReadFromFile(path, &b.entries); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Add records the worker and immediately persists the updated blacklist,
// so that later processes skip the worker too.
func (b *Blacklist) Add(id, reason string, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[id] = BlacklistEntry{Reason: reason, Timestamp: now}
	return jsonutil.WriteToFile(b.path, b.entries)
}

// Contains reports whether the worker is blacklisted.
func (b *Blacklist) Contains(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[id]
	return ok
}

// Entries returns a snapshot of the blacklist contents.
func (b *Blacklist) Entries() map[string]BlacklistEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]BlacklistEntry, len(b.entries))
	for id, e := range b.entries {
		out[id] = e
	}
	return out
}

// Clear empties the blacklist and persists the empty set.
func (b *Blacklist) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]BlacklistEntry)
	return jsonutil.WriteToFile(b.path, b.entries)
}
