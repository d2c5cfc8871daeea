// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sharder deterministically partitions a task manifest across the
// workers of a fleet.
package sharder

import (
	"fmt"
	"sort"

	"go.fleet.dev/fleetrunner/fleet"
)

// DefaultMaxShardSize bounds how many tasks one shard may carry when the
// caller does not say otherwise.
const DefaultMaxShardSize = 256

// Task is one unit of work: a named command to run on some worker.
type Task struct {
	// Name is the unique identifier for the task.
	Name string `json:"name"`

	// Command is the argv to execute.
	Command []string `json:"command"`

	// Flaky marks tasks whose failures are coerced to passes when
	// recording, per the flaky-task manifest.
	Flaky bool `json:"flaky,omitempty"`
}

// Shard is a bounded, ordered subset of the task list assigned to the
// worker at WorkerIndex for one execution pass.
type Shard struct {
	// Name identifies the shard in logs and reports.
	Name string `json:"name"`

	// WorkerIndex is the index of the worker this shard was dealt to.
	WorkerIndex int `json:"worker_index"`

	// Tasks is the ordered set of tasks in this shard.
	Tasks []Task `json:"tasks"`
}

// MakeShards partitions tasks across numWorkers workers. The task list is
// sorted and de-duplicated by name first so that sharding is reproducible
// across runs, then dealt round-robin: the task at flat index i goes to
// worker i mod numWorkers. Each worker's allotment is chunked, in order,
// into shards of at most maxShardSize tasks (DefaultMaxShardSize when
// maxShardSize <= 0).
//
// Workers that receive no tasks produce no shards; that is not an error.
// Zero workers is: partitioning fails with fleet.NoWorkersError before any
// shard is formed.
func MakeShards(tasks []Task, numWorkers, maxShardSize int) ([]*Shard, error) {
	if numWorkers <= 0 {
		return nil, fleet.NoWorkersError{}
	}
	if maxShardSize <= 0 {
		maxShardSize = DefaultMaxShardSize
	}

	tasks = normalize(tasks)

	perWorker := make([][]Task, numWorkers)
	for i, task := range tasks {
		w := i % numWorkers
		perWorker[w] = append(perWorker[w], task)
	}

	var shards []*Shard
	for w, allotment := range perWorker {
		for len(allotment) > 0 {
			n := maxShardSize
			if n > len(allotment) {
				n = len(allotment)
			}
			shards = append(shards, &Shard{
				Name:        fmt.Sprintf("worker%d-shard%03d", w, countForWorker(shards, w)),
				WorkerIndex: w,
				Tasks:       allotment[:n],
			})
			allotment = allotment[n:]
		}
	}
	return shards, nil
}

// normalize sorts tasks by name and drops duplicate names, keeping the
// first occurrence.
func normalize(tasks []Task) []Task {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	deduped := sorted[:0]
	seen := make(map[string]struct{}, len(sorted))
	for _, task := range sorted {
		if _, ok := seen[task.Name]; ok {
			continue
		}
		seen[task.Name] = struct{}{}
		deduped = append(deduped, task)
	}
	return deduped
}

func countForWorker(shards []*Shard, worker int) int {
	n := 0
	for _, s := range shards {
		if s.WorkerIndex == worker {
			n++
		}
	}
	return n
}

// TaskNames returns the sorted names of all tasks in the given list.
func TaskNames(tasks []Task) []string {
	names := make([]string, len(tasks))
	for i, task := range tasks {
		names[i] = task.Name
	}
	sort.Strings(names)
	return names
}
