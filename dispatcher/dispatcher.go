// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package dispatcher executes sharded task allotments across the worker
// pool, isolating worker failures and recording every outcome durably.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/kr/pretty"

	"go.fleet.dev/fleetrunner/fleet"
	"go.fleet.dev/fleetrunner/lib/clock"
	"go.fleet.dev/fleetrunner/lib/logger"
	"go.fleet.dev/fleetrunner/lib/ring"
	"go.fleet.dev/fleetrunner/results"
	"go.fleet.dev/fleetrunner/sharder"
)

// Options configure a Dispatcher.
type Options struct {
	// TaskTimeout bounds each task's execution. Zero means no bound.
	TaskTimeout time.Duration

	// MaxTries is the number of workers a shard may be attempted on
	// before its unfinished tasks are recorded as errors. Values below 1
	// are treated as 1.
	MaxTries int

	// Sequential runs each round's per-worker steps one at a time
	// instead of concurrently. The outcome is the same either way; the
	// sequential mode exists for debugging interleaved output.
	Sequential bool

	// MaxTaskOutput is the number of trailing output bytes retained per
	// task. Defaults to defaultMaxTaskOutput.
	MaxTaskOutput int
}

// A runaway task can emit gigabytes; retain only the tail, which is
// where the failure message lives.
const defaultMaxTaskOutput = 1 << 20

// Dispatcher drives one run: it leases workers from the pool, walks each
// worker through its shards, and records results as they become terminal.
type Dispatcher struct {
	pool   *fleet.Pool
	store  *results.Store
	report *results.Report
	opts   Options
}

// New returns a dispatcher that runs against the given pool and records
// outcomes in the given store.
func New(pool *fleet.Pool, store *results.Store, opts Options) *Dispatcher {
	if opts.MaxTries < 1 {
		opts.MaxTries = 1
	}
	if opts.MaxTaskOutput <= 0 {
		opts.MaxTaskOutput = defaultMaxTaskOutput
	}
	return &Dispatcher{
		pool:   pool,
		store:  store,
		report: &results.Report{},
		opts:   opts,
	}
}

// Report returns the in-memory report accumulated by Execute.
func (d *Dispatcher) Report() *results.Report {
	return d.report
}

// attempt is a shard together with the number of workers it has already
// been tried on.
type attempt struct {
	shard *sharder.Shard
	tries int
}

// Execute runs every shard to a terminal result. A worker that fails
// mid-shard is blacklisted and its unfinished tasks are redistributed to
// the surviving workers, up to MaxTries attempts per shard; tasks that
// exhaust their attempts are recorded as errors rather than lost. Only
// run-level problems (a canceled context, an empty pool) surface as an
// error; task failures are results, not errors.
func (d *Dispatcher) Execute(ctx context.Context, shards []*sharder.Shard) error {
	logger.Debugf(ctx, "executing shards: %# v", pretty.Formatter(shards))

	pending := make([]*attempt, 0, len(shards))
	for _, s := range shards {
		pending = append(pending, &attempt{shard: s})
	}

	for len(pending) > 0 {
		workers := d.pool.Workers()
		if len(workers) == 0 {
			d.recordAbandoned(ctx, pending, "no workers remain")
			return fleet.NoWorkersError{}
		}

		var retry []*attempt
		var mu sync.Mutex

		// Group this round's shards by worker, then run one step per
		// worker. Worker failures are handled inside the step so they
		// never cancel the other workers' steps.
		byWorker := make(map[int][]*attempt)
		for i, a := range pending {
			byWorker[i%len(workers)] = append(byWorker[i%len(workers)], a)
		}
		var steps []Step
		for i, w := range workers {
			allotment := byWorker[i]
			if len(allotment) == 0 {
				continue
			}
			w := w
			steps = append(steps, Step{
				Name: fmt.Sprintf("run shards on %s", w.ID()),
				Run: func(ctx context.Context) error {
					failed := d.runAllotment(ctx, w, allotment)
					if len(failed) > 0 {
						mu.Lock()
						retry = append(retry, failed...)
						mu.Unlock()
					}
					return ctx.Err()
				},
			})
		}
		if err := RunSteps(ctx, steps, !d.opts.Sequential); err != nil {
			return err
		}

		pending = pending[:0]
		for _, a := range retry {
			if a.tries >= d.opts.MaxTries {
				d.recordAbandoned(ctx, []*attempt{a}, fmt.Sprintf("shard failed on %d worker(s)", a.tries))
				continue
			}
			pending = append(pending, a)
		}
	}
	return nil
}

// runAllotment walks one worker through its shards for this round. It
// returns the attempts that must move to another worker because this one
// failed; the worker has already been blacklisted in that case.
func (d *Dispatcher) runAllotment(ctx context.Context, w fleet.Worker, allotment []*attempt) []*attempt {
	for i, a := range allotment {
		remaining, err := d.runShard(ctx, w, a.shard)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		d.pool.Blacklist(ctx, w, fmt.Sprintf("failed during shard %s: %s", a.shard.Name, err))

		// Everything this worker has not finished goes back on the
		// queue: the interrupted shard's unfinished tail plus the
		// shards it never started. Only the interrupted shard spent an
		// attempt; the unstarted ones keep their full try budget.
		failed := []*attempt{{
			shard: &sharder.Shard{
				Name:        a.shard.Name,
				WorkerIndex: a.shard.WorkerIndex,
				Tasks:       remaining,
			},
			tries: a.tries + 1,
		}}
		return append(failed, allotment[i+1:]...)
	}
	return nil
}

// runShard executes one shard's tasks in order on one worker. On a worker
// failure it returns the tasks that did not reach a terminal state, the
// interrupted task included, so they can be retried elsewhere.
func (d *Dispatcher) runShard(ctx context.Context, w fleet.Worker, shard *sharder.Shard) ([]sharder.Task, error) {
	logger.Infof(ctx, "worker %s starting shard %s (%d tasks)", w.ID(), shard.Name, len(shard.Tasks))
	for i, task := range shard.Tasks {
		if err := ctx.Err(); err != nil {
			return shard.Tasks[i:], err
		}
		result, err := d.executeTask(ctx, w, task)
		if err != nil {
			return shard.Tasks[i:], err
		}
		d.record(ctx, result)
	}
	return nil, nil
}

// executeTask runs a single task and maps its outcome to a result. A
// non-nil error means the worker itself failed and the task has no
// terminal result yet.
func (d *Dispatcher) executeTask(ctx context.Context, w fleet.Worker, task sharder.Task) (results.TaskResult, error) {
	result := results.TaskResult{
		Name:      task.Name,
		WorkerID:  w.ID(),
		StartTime: clock.Now(ctx),
	}

	// The ring buffer bounds retention, and keeps the read after a
	// timeout safe while the abandoned run goroutine may still be
	// writing.
	output := ring.NewBuffer(d.opts.MaxTaskOutput)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(runCtx, task.Command, output, output)
	}()

	var timeoutCh <-chan time.Time
	if d.opts.TaskTimeout > 0 {
		timeoutCh = clock.After(ctx, d.opts.TaskTimeout)
	}
	var runErr error
	timedOut := false
	select {
	case runErr = <-errCh:
	case <-timeoutCh:
		timedOut = true
		// Ask the worker to kill the command, but don't wait for it: a
		// worker wedged enough to hit the deadline may never answer. The
		// goroutine is abandoned and exits whenever the transport
		// releases it.
		cancel()
	case <-ctx.Done():
		runErr = ctx.Err()
	}

	result.EndTime = clock.Now(ctx)
	result.Output = output.String()

	switch {
	case timedOut:
		result.Status = results.Timeout
		logger.Errorf(ctx, "task %s timed out after %s on worker %s", task.Name, d.opts.TaskTimeout, w.ID())
	case runErr == nil:
		result.Status = results.Passed
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		return result, runErr
	default:
		var startErr *exec.Error
		if code, ok := fleet.CommandExitCode(runErr); ok {
			result.Status = results.Failed
			result.ExitCode = code
		} else if errors.As(runErr, &startErr) {
			// The command could not start at all (bad path, not
			// executable). That is the task's problem, not the
			// worker's; blacklisting here would drain the pool on a
			// manifest typo.
			result.Status = results.Error
			result.Output += runErr.Error() + "\n"
			logger.Errorf(ctx, "task %s could not start on worker %s: %s", task.Name, w.ID(), runErr)
		} else {
			// The command never ran to completion; treat this as a
			// worker failure and let the caller retry the task
			// elsewhere.
			var failure fleet.WorkerFailure
			if !errors.As(runErr, &failure) {
				runErr = fleet.WorkerFailure{WorkerID: w.ID(), Err: runErr}
			}
			return result, runErr
		}
	}

	if result.Status == results.Failed && task.Flaky {
		logger.Warningf(ctx, "task %s failed on worker %s (ignored, flaky)", task.Name, w.ID())
		result.Status = results.Passed
		result.ExitCode = 0
		result.Output += "(ignored, flaky)\n"
	}
	return result, nil
}

// recordAbandoned records an Error result for every task in the given
// attempts. Used when a shard runs out of workers or tries; the tasks get
// an explicit terminal state instead of silently vanishing from the run.
func (d *Dispatcher) recordAbandoned(ctx context.Context, attempts []*attempt, reason string) {
	now := clock.Now(ctx)
	for _, a := range attempts {
		for _, task := range a.shard.Tasks {
			logger.Errorf(ctx, "abandoning task %s: %s", task.Name, reason)
			d.record(ctx, results.TaskResult{
				Name:      task.Name,
				WorkerID:  "",
				Status:    results.Error,
				Output:    reason + "\n",
				StartTime: now,
				EndTime:   now,
			})
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, result results.TaskResult) {
	d.report.Add(result)
	if err := d.store.Record(result); err != nil {
		logger.Errorf(ctx, "failed to record result for task %s: %s", result.Name, err)
	}
}
