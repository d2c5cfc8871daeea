// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sharder

import (
	"fmt"

	"github.com/google/shlex"

	"go.fleet.dev/fleetrunner/lib/jsonutil"
)

// LoadManifest reads a task manifest: a JSON object mapping task name to
// the command line to execute for that task. Command lines are split with
// shell-style quoting.
func LoadManifest(path string) ([]Task, error) {
	var manifest map[string]string
	if err := jsonutil.ReadFromFile(path, &manifest); err != nil {
		return nil, err
	}
	var tasks []Task
	for name, cmdline := range manifest {
		command, err := shlex.Split(cmdline)
		if err != nil {
			return nil, fmt.Errorf("task %q has an unparseable command %q: %w", name, cmdline, err)
		}
		if len(command) == 0 {
			return nil, fmt.Errorf("task %q has an empty command", name)
		}
		tasks = append(tasks, Task{Name: name, Command: command})
	}
	return tasks, nil
}

// LoadFlakyManifest reads a flaky-task manifest: a JSON list of task names
// whose non-zero exits should be ignored.
func LoadFlakyManifest(path string) (map[string]struct{}, error) {
	var names []string
	if err := jsonutil.ReadFromFile(path, &names); err != nil {
		return nil, err
	}
	flaky := make(map[string]struct{}, len(names))
	for _, name := range names {
		flaky[name] = struct{}{}
	}
	return flaky, nil
}

// MarkFlaky flags every task named in flaky, returning the updated list.
func MarkFlaky(tasks []Task, flaky map[string]struct{}) []Task {
	for i, task := range tasks {
		if _, ok := flaky[task.Name]; ok {
			tasks[i].Flaky = true
		}
	}
	return tasks
}
