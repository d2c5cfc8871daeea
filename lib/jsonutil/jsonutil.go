// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package jsonutil has convenience functions for reading and writing JSON
// files.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReadFromFile parses the JSON file at the given path into out.
func ReadFromFile(path string, out interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", path, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to unmarshal %q: %w", path, err)
	}
	return nil
}

// WriteToFile serializes in as indented JSON and writes it to path,
// replacing any existing file.
func WriteToFile(path string, in interface{}) error {
	b, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal contents of %q: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}
