// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package results defines task outcomes and the durable store that
// decouples a sharded run from a later reporting pass.
package results

import (
	"fmt"
	"strings"
	"time"
)

// Status is the execution state of a task.
type Status string

const (
	// Pending means the task has been scheduled but not started.
	Pending Status = "PENDING"

	// Running means the task has started on a worker.
	Running Status = "RUNNING"

	// Passed means the task exited successfully.
	Passed Status = "PASSED"

	// Failed means the task ran to completion and exited non-zero.
	Failed Status = "FAILED"

	// Error means the task could not be run to completion, usually
	// because its worker became unusable partway through.
	Error Status = "ERROR"

	// Timeout means the task exceeded its allotted execution time. It is
	// deliberately distinct from Error.
	Timeout Status = "TIMEOUT"
)

// Terminal returns whether the status is an end state. Terminal results are
// write-once in the store.
func (s Status) Terminal() bool {
	switch s {
	case Passed, Failed, Error, Timeout:
		return true
	}
	return false
}

// TaskResult is the recorded outcome of running one task on one worker.
// It is immutable once recorded.
type TaskResult struct {
	// Name is the name of the task that was executed.
	Name string `json:"name"`

	// WorkerID identifies the worker the task ran on.
	WorkerID string `json:"worker_id"`

	// Status describes how the task ended.
	Status Status `json:"status"`

	// ExitCode is the task command's exit code. Meaningless unless the
	// status is Passed or Failed.
	ExitCode int `json:"exit_code"`

	// Output is the combined stdout and stderr of the task command.
	Output string `json:"output,omitempty"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Passed returns whether the task succeeded.
func (r *TaskResult) Passed() bool {
	return r.Status == Passed
}

// Duration returns the elapsed execution time.
func (r *TaskResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Format renders the result as the text block printed by the reporting
// commands.
func (r *TaskResult) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s (worker %s, %s)\n", r.Status, r.Name, r.WorkerID, r.Duration().Round(time.Millisecond))
	if out := strings.TrimRight(r.Output, "\n"); out != "" {
		b.WriteString(out)
		b.WriteString("\n")
	}
	return b.String()
}
