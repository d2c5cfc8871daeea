// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sharder

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeFile(t, "tasks.json", `{
		"unit_tests": "./run_tests --fast",
		"quoted": "sh -c 'echo hello world'"
	}`)
	tasks, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	want := []Task{
		{Name: "quoted", Command: []string{"sh", "-c", "echo hello world"}},
		{Name: "unit_tests", Command: []string{"./run_tests", "--fast"}},
	}
	if diff := cmp.Diff(want, tasks); diff != "" {
		t.Errorf("LoadManifest mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadManifestRejectsEmptyCommand(t *testing.T) {
	path := writeFile(t, "tasks.json", `{"empty": ""}`)
	if _, err := LoadManifest(path); err == nil {
		t.Error("LoadManifest should reject an empty command")
	}
}

func TestMarkFlaky(t *testing.T) {
	flakyPath := writeFile(t, "flaky.json", `["b"]`)
	flaky, err := LoadFlakyManifest(flakyPath)
	if err != nil {
		t.Fatal(err)
	}
	tasks := MarkFlaky(makeTasks("a", "b", "c"), flaky)
	for _, task := range tasks {
		if want := task.Name == "b"; task.Flaky != want {
			t.Errorf("task %q flaky = %t, want %t", task.Name, task.Flaky, want)
		}
	}
}
