// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"go.fleet.dev/fleetrunner/lib/logger"
	"go.fleet.dev/fleetrunner/lib/streams"
	"go.fleet.dev/fleetrunner/results"
	"go.fleet.dev/fleetrunner/sharder"
)

// PrintOneCommand replays the recorded result of a single task. Its exit
// status mirrors the task's outcome, so a reporting step per task can
// fail exactly when the task did.
type PrintOneCommand struct {
	outDir string
	task   string
}

func (*PrintOneCommand) Name() string {
	return "print-one"
}

func (*PrintOneCommand) Usage() string {
	return `
fleetrunner print-one -out-dir <dir> -task <name>

flags:
`
}

func (*PrintOneCommand) Synopsis() string {
	return "prints the recorded result of one task, failing if it failed"
}

func (c *PrintOneCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outDir, "out-dir", "", "directory the run stored per-task results in")
	f.StringVar(&c.task, "task", "", "name of the task to print")
}

func (c *PrintOneCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.outDir == "" || c.task == "" {
		logger.Errorf(ctx, "-out-dir and -task are required")
		return subcommands.ExitUsageError
	}
	store := results.NewStore(c.outDir)
	result, err := store.Render(streams.Stdout(ctx), c.task)
	if err != nil {
		logger.Errorf(ctx, "%v\n", err)
		return subcommands.ExitFailure
	}
	if !result.Passed() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// PrintAllCommand replays the recorded results of every task in a
// manifest. It fails if any task failed, is missing a result, or could
// not be read.
type PrintAllCommand struct {
	outDir    string
	tasksFile string
}

func (*PrintAllCommand) Name() string {
	return "print-all"
}

func (*PrintAllCommand) Usage() string {
	return `
fleetrunner print-all -out-dir <dir> -tasks-file <manifest>

flags:
`
}

func (*PrintAllCommand) Synopsis() string {
	return "prints the recorded results of every task in a manifest"
}

func (c *PrintAllCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outDir, "out-dir", "", "directory the run stored per-task results in")
	f.StringVar(&c.tasksFile, "tasks-file", "", "path to the JSON task manifest")
}

func (c *PrintAllCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.outDir == "" || c.tasksFile == "" {
		logger.Errorf(ctx, "-out-dir and -tasks-file are required")
		return subcommands.ExitUsageError
	}
	tasks, err := sharder.LoadManifest(c.tasksFile)
	if err != nil {
		logger.Errorf(ctx, "%v\n", err)
		return subcommands.ExitFailure
	}
	store := results.NewStore(c.outDir)
	ok, err := store.RenderAll(streams.Stdout(ctx), sharder.TaskNames(tasks))
	if err != nil {
		logger.Errorf(ctx, "%v\n", err)
		return subcommands.ExitFailure
	}
	if !ok {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
