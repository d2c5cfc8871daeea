// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package results

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"go.fleet.dev/fleetrunner/lib/jsonutil"
)

// ResultNotFoundError is returned by replay operations when no result was
// ever recorded for a task.
type ResultNotFoundError struct {
	Name string
}

func (e ResultNotFoundError) Error() string {
	return fmt.Sprintf("no recorded result for task %q", e.Name)
}

// Store persists one file per task name under a single directory so that a
// separate process invocation can report on a run without re-executing it.
//
// Individual task names map to unique files, so concurrent Record calls
// for distinct tasks need no locking; Clear must complete before any
// worker starts writing.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is not created
// until Clear is called at the start of a fresh run.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Clear deletes and recreates the store directory, dropping any results
// from previous runs. Callers must invoke it before dispatching work.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to clear result store %q: %w", s.dir, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create result store %q: %w", s.dir, err)
	}
	return nil
}

// Record serializes the result to the file named for its task. A terminal
// result already on disk wins; later writes for the same task are dropped
// so that recorded outcomes stay immutable within a run.
func (s *Store) Record(result TaskResult) error {
	path := s.taskPath(result.Name)
	if existing, err := s.Get(result.Name); err == nil && existing.Status.Terminal() {
		return nil
	}
	return jsonutil.WriteToFile(path, result)
}

// Get reads back the recorded result for the named task. Returns
// ResultNotFoundError if the task was never recorded.
func (s *Store) Get(name string) (*TaskResult, error) {
	path := s.taskPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ResultNotFoundError{Name: name}
	}
	var result TaskResult
	if err := jsonutil.ReadFromFile(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Render reads back and prints the recorded result for a single task. The
// returned result lets callers derive an exit status.
func (s *Store) Render(w io.Writer, name string) (*TaskResult, error) {
	result, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, result.Format()); err != nil {
		return nil, err
	}
	return result, nil
}

// RenderAll prints every named result in order. Missing results are
// reported inline and, like non-passing results, make the returned ok
// false; all other tasks are still printed.
func (s *Store) RenderAll(w io.Writer, names []string) (ok bool, err error) {
	ok = true
	for _, name := range names {
		result, renderErr := s.Render(w, name)
		if renderErr != nil {
			var notFound ResultNotFoundError
			if errors.As(renderErr, &notFound) {
				fmt.Fprintf(w, "[MISSING] %s: %s\n", name, notFound.Error())
				ok = false
				continue
			}
			err = multierr.Append(err, renderErr)
			ok = false
			continue
		}
		if !result.Passed() {
			ok = false
		}
	}
	return ok, err
}

// Report reconstructs a run report purely from recorded results, without
// re-running anything. Tasks with no recorded result are skipped.
func (s *Store) Report(names []string) (*Report, error) {
	report := &Report{}
	for _, name := range names {
		result, err := s.Get(name)
		if err != nil {
			var notFound ResultNotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return nil, err
		}
		report.Add(*result)
	}
	return report, nil
}

func (s *Store) taskPath(name string) string {
	// Task names may contain characters that are unsafe in filenames.
	// QueryEscape also escapes ":" and "/", so distinct names can never
	// map to the same file.
	return filepath.Join(s.dir, url.QueryEscape(name)+".json")
}
