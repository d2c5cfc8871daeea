// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"go.fleet.dev/fleetrunner/dispatcher"
	"go.fleet.dev/fleetrunner/fleet"
	"go.fleet.dev/fleetrunner/lib/flagmisc"
	"go.fleet.dev/fleetrunner/lib/logger"
	"go.fleet.dev/fleetrunner/lib/streams"
	"go.fleet.dev/fleetrunner/results"
	"go.fleet.dev/fleetrunner/sharder"
)

// RunCommand shards a task manifest across the fleet, executes every
// shard, and records per-task results under the output directory.
//
// Task failures are not command failures: the command exits zero as long
// as the run itself completed, and the print-one/print-all commands
// replay the recorded results with failure-reflecting exit codes.
type RunCommand struct {
	// TasksFile is the JSON manifest mapping task names to command lines.
	tasksFile string

	// FlakyTasksFile is an optional JSON list of task names whose
	// failures are ignored.
	flakyTasksFile string

	// FlakyTasks names individual flaky tasks, in addition to any from
	// the flaky tasks file.
	flakyTasks flagmisc.StringsValue

	// ConfigFile is the path to the fleet worker configurations.
	configFile string

	// LocalWorkers, as an alternative to a config file, spins up the
	// given number of local workers.
	localWorkers int

	// WorkerID restricts the run to a single named worker.
	workerID string

	// BlacklistFile persists misbehaving workers across runs.
	blacklistFile string

	// OutDir is where per-task results are stored.
	outDir string

	// CacheDir holds per-worker file push caches.
	cacheDir string

	maxShardSize int
	taskTimeout  time.Duration
	maxTries     int
	sequential   bool
}

func (*RunCommand) Name() string {
	return "run"
}

func (*RunCommand) Usage() string {
	return `
fleetrunner run [flags...]

flags:
`
}

func (*RunCommand) Synopsis() string {
	return "shards a task manifest across the fleet and executes it"
}

func (r *RunCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.tasksFile, "tasks-file", "", "path to the JSON task manifest")
	f.StringVar(&r.flakyTasksFile, "flaky-tasks-file", "", "path to a JSON list of task names whose failures are ignored")
	f.Var(&r.flakyTasks, "flaky-task", "name of a task whose failures are ignored; may be repeated")
	f.StringVar(&r.configFile, "config", "", "path to file of worker configs")
	f.IntVar(&r.localWorkers, "local-workers", 0, "run against this many local workers instead of a config file")
	f.StringVar(&r.workerID, "worker", "", "restrict the run to the single named worker")
	f.StringVar(&r.blacklistFile, "blacklist-file", "", "file persisting blacklisted workers across runs")
	f.StringVar(&r.outDir, "out-dir", "", "directory to store per-task results in")
	f.StringVar(&r.cacheDir, "cache-dir", "", "directory holding per-worker file push caches")
	f.IntVar(&r.maxShardSize, "max-shard-size", sharder.DefaultMaxShardSize, "maximum number of tasks per shard")
	f.DurationVar(&r.taskTimeout, "task-timeout", 0, "duration allowed for each task to finish execution; 0 means unbounded")
	f.IntVar(&r.maxTries, "max-tries", 1, "number of workers a shard may be attempted on before its tasks are recorded as errors")
	f.BoolVar(&r.sequential, "sequential", false, "run per-worker steps one at a time instead of concurrently")
}

func (r *RunCommand) execute(ctx context.Context) error {
	tasks, err := sharder.LoadManifest(r.tasksFile)
	if err != nil {
		return err
	}
	flaky := make(map[string]struct{})
	if r.flakyTasksFile != "" {
		flaky, err = sharder.LoadFlakyManifest(r.flakyTasksFile)
		if err != nil {
			return err
		}
	}
	for _, name := range r.flakyTasks {
		flaky[name] = struct{}{}
	}
	if len(flaky) > 0 {
		tasks = sharder.MarkFlaky(tasks, flaky)
	}

	var discoverer fleet.Discoverer
	switch {
	case r.configFile != "" && r.localWorkers > 0:
		return fmt.Errorf("-config and -local-workers are mutually exclusive")
	case r.configFile != "":
		discoverer, err = fleet.LoadFleetConfig(r.configFile)
		if err != nil {
			return err
		}
	case r.localWorkers > 0:
		discoverer = fleet.LocalFleet(r.localWorkers)
	default:
		return fmt.Errorf("either -config or -local-workers is required")
	}

	opts := fleet.Options{WorkerID: r.workerID, CacheDir: r.cacheDir}
	if r.blacklistFile != "" {
		opts.Blacklist, err = fleet.LoadBlacklist(r.blacklistFile)
		if err != nil {
			return err
		}
	}
	pool := fleet.NewPool(discoverer, opts)
	if err := pool.Discover(ctx); err != nil {
		return err
	}
	defer func() {
		if err := pool.Close(ctx); err != nil {
			logger.Errorf(ctx, "failed to close worker pool: %s", err)
		}
	}()

	shards, err := sharder.MakeShards(tasks, pool.Size(), r.maxShardSize)
	if err != nil {
		return err
	}

	// Stale results from an earlier run must not leak into this one's
	// report, so the store is wiped only once a run is actually going
	// to happen.
	store := results.NewStore(r.outDir)
	if err := store.Clear(); err != nil {
		return err
	}

	d := dispatcher.New(pool, store, dispatcher.Options{
		TaskTimeout: r.taskTimeout,
		MaxTries:    r.maxTries,
		Sequential:  r.sequential,
	})
	if err := d.Execute(ctx, shards); err != nil {
		return err
	}

	fmt.Fprint(streams.Stdout(ctx), d.Report().Summary())
	return nil
}

func (r *RunCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if r.tasksFile == "" || r.outDir == "" {
		logger.Errorf(ctx, "-tasks-file and -out-dir are required")
		return subcommands.ExitUsageError
	}
	if err := r.execute(ctx); err != nil {
		logger.Errorf(ctx, "%v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
