// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package results

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Report aggregates the task results of one run. It is safe for use from
// multiple worker goroutines.
type Report struct {
	mu      sync.Mutex
	results []TaskResult
}

// Add appends a result to the report.
func (r *Report) Add(result TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

// Results returns all results ordered by task name.
func (r *Report) Results() []TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskResult, len(r.results))
	copy(out, r.results)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Counts returns the number of results in each status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, result := range r.Results() {
		counts[result.Status]++
	}
	return counts
}

// Passed returns whether every recorded result passed.
func (r *Report) Passed() bool {
	for _, result := range r.Results() {
		if !result.Passed() {
			return false
		}
	}
	return true
}

// Summary renders a one-run overview: counts by status plus the slowest
// tasks.
func (r *Report) Summary() string {
	results := r.Results()
	counts := r.Counts()

	var b strings.Builder
	fmt.Fprintf(&b, "%d task(s) run", len(results))
	for _, status := range []Status{Passed, Failed, Error, Timeout} {
		if n := counts[status]; n > 0 {
			fmt.Fprintf(&b, ", %d %s", n, strings.ToLower(string(status)))
		}
	}
	b.WriteString("\n")

	slowest := make([]TaskResult, len(results))
	copy(slowest, results)
	sort.Slice(slowest, func(i, j int) bool { return slowest[i].Duration() > slowest[j].Duration() })
	if len(slowest) > 5 {
		slowest = slowest[:5]
	}
	for _, result := range slowest {
		fmt.Fprintf(&b, "  %s: %s\n", result.Duration().Round(time.Millisecond), result.Name)
	}
	return b.String()
}
