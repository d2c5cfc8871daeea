// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fleet

import (
	"fmt"
	"strings"
)

// NoWorkersError means discovery found no healthy workers. It is fatal:
// a run cannot proceed, and nothing (including the result store) should
// be touched.
type NoWorkersError struct{}

func (NoWorkersError) Error() string {
	return "no healthy workers available"
}

// WorkerUnreachableError means a specifically requested worker was not
// among the healthy workers. Fatal for the invocation.
type WorkerUnreachableError struct {
	ID       string
	Attached []string
}

func (e WorkerUnreachableError) Error() string {
	return fmt.Sprintf("did not find worker %q among healthy workers: %s",
		e.ID, strings.Join(e.Attached, ", "))
}

// WorkerFailure wraps an error raised by an operation running on a
// specific worker. It is non-fatal to the run: the failure handler
// blacklists the worker and the rest of the fleet continues.
type WorkerFailure struct {
	WorkerID string
	Err      error
}

func (e WorkerFailure) Error() string {
	return fmt.Sprintf("worker %s failed: %s", e.WorkerID, e.Err)
}

func (e WorkerFailure) Unwrap() error {
	return e.Err
}
