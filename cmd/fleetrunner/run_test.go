// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"

	"go.fleet.dev/fleetrunner/fleet"
	"go.fleet.dev/fleetrunner/lib/streams"
	"go.fleet.dev/fleetrunner/results"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) failed: %s", name, err)
	}
	return path
}

// TestRunAndReplay drives the whole pipeline against real local workers:
// run a manifest of shell commands, then replay the recorded results the
// way a per-task reporting step would.
func TestRunAndReplay(t *testing.T) {
	ctx := context.Background()
	outDir := filepath.Join(t.TempDir(), "results")

	tasksFile := writeFile(t, "tasks.json", `{
		"task_pass": "echo hello from task_pass",
		"task_fail": "sh -c \"echo oh no; exit 2\""
	}`)

	run := &RunCommand{
		tasksFile:    tasksFile,
		localWorkers: 2,
		outDir:       outDir,
		maxShardSize: 8,
		maxTries:     1,
	}
	var runOut bytes.Buffer
	if err := run.execute(streams.ContextWithStdout(ctx, &runOut)); err != nil {
		t.Fatalf("run failed: %s", err)
	}
	if !strings.Contains(runOut.String(), "1 passed") {
		t.Errorf("run summary missing pass count: %q", runOut.String())
	}

	store := results.NewStore(outDir)
	passed, err := store.Get("task_pass")
	if err != nil {
		t.Fatalf("Get(task_pass) failed: %s", err)
	}
	if passed.Status != results.Passed {
		t.Errorf("task_pass status = %s, want %s", passed.Status, results.Passed)
	}
	if !strings.Contains(passed.Output, "hello from task_pass") {
		t.Errorf("task_pass output = %q, missing command output", passed.Output)
	}
	failed, err := store.Get("task_fail")
	if err != nil {
		t.Fatalf("Get(task_fail) failed: %s", err)
	}
	if failed.Status != results.Failed || failed.ExitCode != 2 {
		t.Errorf("task_fail = (%s, %d), want (%s, 2)", failed.Status, failed.ExitCode, results.Failed)
	}

	t.Run("print-one mirrors the task outcome", func(t *testing.T) {
		for _, tc := range []struct {
			task string
			want subcommands.ExitStatus
		}{
			{task: "task_pass", want: subcommands.ExitSuccess},
			{task: "task_fail", want: subcommands.ExitFailure},
			{task: "task_unknown", want: subcommands.ExitFailure},
		} {
			var out bytes.Buffer
			cmd := &PrintOneCommand{outDir: outDir, task: tc.task}
			got := cmd.Execute(streams.ContextWithStdout(ctx, &out), nil)
			if got != tc.want {
				t.Errorf("print-one %s exited %v, want %v", tc.task, got, tc.want)
			}
			if tc.want == subcommands.ExitSuccess && !strings.Contains(out.String(), tc.task) {
				t.Errorf("print-one %s output %q does not mention the task", tc.task, out.String())
			}
		}
	})

	t.Run("print-all fails when any task failed", func(t *testing.T) {
		var out bytes.Buffer
		cmd := &PrintAllCommand{outDir: outDir, tasksFile: tasksFile}
		if got := cmd.Execute(streams.ContextWithStdout(ctx, &out), nil); got != subcommands.ExitFailure {
			t.Errorf("print-all exited %v, want %v", got, subcommands.ExitFailure)
		}
		for _, task := range []string{"task_pass", "task_fail"} {
			if !strings.Contains(out.String(), task) {
				t.Errorf("print-all output missing %s:\n%s", task, out.String())
			}
		}
	})
}

func TestRunFlakyFailuresAreIgnored(t *testing.T) {
	ctx := context.Background()
	outDir := filepath.Join(t.TempDir(), "results")

	tasksFile := writeFile(t, "tasks.json", `{
		"task_flaky": "false",
		"task_also_flaky": "false"
	}`)
	flakyFile := writeFile(t, "flaky.json", `["task_flaky"]`)

	run := &RunCommand{
		tasksFile:      tasksFile,
		flakyTasksFile: flakyFile,
		flakyTasks:     []string{"task_also_flaky"},
		localWorkers:   1,
		outDir:         outDir,
		maxShardSize:   8,
		maxTries:       1,
	}
	var out bytes.Buffer
	if err := run.execute(streams.ContextWithStdout(ctx, &out)); err != nil {
		t.Fatalf("run failed: %s", err)
	}

	var printOut bytes.Buffer
	cmd := &PrintAllCommand{outDir: outDir, tasksFile: tasksFile}
	if got := cmd.Execute(streams.ContextWithStdout(ctx, &printOut), nil); got != subcommands.ExitSuccess {
		t.Errorf("print-all exited %v, want %v", got, subcommands.ExitSuccess)
	}
	if !strings.Contains(printOut.String(), "(ignored, flaky)") {
		t.Errorf("replayed output missing flaky annotation:\n%s", printOut.String())
	}
}

func TestRunEmptyFleetLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	tasksFile := writeFile(t, "tasks.json", `{"task": "true"}`)
	configFile := writeFile(t, "fleet.json", `[]`)

	t.Run("out-dir is not created", func(t *testing.T) {
		outDir := filepath.Join(t.TempDir(), "results")
		run := &RunCommand{
			tasksFile:  tasksFile,
			configFile: configFile,
			outDir:     outDir,
		}
		err := run.execute(ctx)
		var noWorkers fleet.NoWorkersError
		if !errors.As(err, &noWorkers) {
			t.Fatalf("run returned %v, want NoWorkersError", err)
		}
		if _, statErr := os.Stat(outDir); !os.IsNotExist(statErr) {
			t.Errorf("out-dir %s exists after an aborted run", outDir)
		}
	})

	t.Run("stale results survive", func(t *testing.T) {
		// A run that never gets workers must not wipe the previous
		// run's results; the print commands still need them.
		outDir := t.TempDir()
		stale := filepath.Join(outDir, "old_task.json")
		if err := os.WriteFile(stale, []byte(`{"name": "old_task"}`), 0o644); err != nil {
			t.Fatalf("WriteFile() failed: %s", err)
		}
		run := &RunCommand{
			tasksFile:  tasksFile,
			configFile: configFile,
			outDir:     outDir,
		}
		err := run.execute(ctx)
		var noWorkers fleet.NoWorkersError
		if !errors.As(err, &noWorkers) {
			t.Fatalf("run returned %v, want NoWorkersError", err)
		}
		if _, statErr := os.Stat(stale); statErr != nil {
			t.Errorf("stale result was removed by an aborted run: %s", statErr)
		}
	})
}

func TestRunRequiresWorkerSource(t *testing.T) {
	ctx := context.Background()
	tasksFile := writeFile(t, "tasks.json", `{"task": "true"}`)
	run := &RunCommand{
		tasksFile: tasksFile,
		outDir:    filepath.Join(t.TempDir(), "results"),
	}
	if err := run.execute(ctx); err == nil {
		t.Errorf("run without -config or -local-workers unexpectedly succeeded")
	}
}
