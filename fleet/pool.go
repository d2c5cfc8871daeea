// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fleet

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"go.fleet.dev/fleetrunner/lib/clock"
	"go.fleet.dev/fleetrunner/lib/logger"
)

// HealthCheck decides at discovery time whether a worker may join the
// pool. The default policy asks the worker's transport directly.
type HealthCheck func(ctx context.Context, w Worker) error

// Options configure a Pool. All state the pool touches is named here
// explicitly; there are no package-level singletons.
type Options struct {
	// Blacklist, if set, persists failed workers across runs. When nil,
	// Blacklist() degrades to a logged warning.
	Blacklist *Blacklist

	// WorkerID restricts the pool to the single named worker.
	WorkerID string

	// HealthCheck overrides the discovery health policy.
	HealthCheck HealthCheck

	// CacheDir, if set, holds per-worker file-presence caches that are
	// loaded at discovery and persisted at Close, so later runs skip
	// pushes of content a worker already has.
	CacheDir string
}

// Pool owns the live worker set for one run. It is the only component
// that creates or blacklists workers; the dispatcher borrows workers for
// the duration of a shard and reports failures back here.
type Pool struct {
	discoverer Discoverer
	opts       Options

	mu      sync.Mutex
	workers []Worker
	caches  map[string]*fileCache
}

// NewPool returns a pool that draws workers from the given discoverer.
// Call Discover before handing the pool to a dispatcher.
func NewPool(discoverer Discoverer, opts Options) *Pool {
	if opts.HealthCheck == nil {
		opts.HealthCheck = func(ctx context.Context, w Worker) error {
			return w.CheckHealth(ctx)
		}
	}
	return &Pool{
		discoverer: discoverer,
		opts:       opts,
		caches:     make(map[string]*fileCache),
	}
}

// Discover queries the fleet and fills the live worker set with the
// healthy, non-blacklisted workers. Fails with NoWorkersError when the
// resulting set is empty, and with WorkerUnreachableError when a
// requested single worker is not present.
func (p *Pool) Discover(ctx context.Context) error {
	attached, err := p.discoverer.Discover(ctx)
	if err != nil {
		return err
	}

	var candidates []Worker
	for _, w := range attached {
		if p.opts.Blacklist != nil && p.opts.Blacklist.Contains(w.ID()) {
			logger.Infof(ctx, "skipping blacklisted worker %s", w.ID())
			continue
		}
		candidates = append(candidates, w)
	}

	healthy := p.checkAll(ctx, candidates)

	if p.opts.WorkerID != "" {
		var ids []string
		for _, w := range healthy {
			ids = append(ids, w.ID())
		}
		found := false
		for _, w := range healthy {
			if w.ID() == p.opts.WorkerID {
				healthy = []Worker{w}
				found = true
				break
			}
		}
		if !found {
			return WorkerUnreachableError{ID: p.opts.WorkerID, Attached: ids}
		}
	}

	if len(healthy) == 0 {
		return NoWorkersError{}
	}

	if p.opts.CacheDir != "" {
		for i, w := range healthy {
			cache, err := loadFileCache(p.cachePath(w.ID()))
			if err != nil {
				logger.Warningf(ctx, "discarding unreadable push cache for %s: %s", w.ID(), err)
				cache = &fileCache{Pushed: make(map[string][]string)}
			}
			p.caches[w.ID()] = cache
			healthy[i] = &cachingWorker{Worker: w, cache: cache}
		}
	}

	p.mu.Lock()
	p.workers = healthy
	p.mu.Unlock()
	logger.Infof(ctx, "discovered %d healthy worker(s)", len(healthy))
	return nil
}

// checkAll health-checks candidates concurrently and returns the ones
// that pass. Failing a health check is not a blacklisting offense; the
// worker may be back next run.
func (p *Pool) checkAll(ctx context.Context, candidates []Worker) []Worker {
	results := make([]error, len(candidates))
	var wg sync.WaitGroup
	for i, w := range candidates {
		wg.Add(1)
		go func(i int, w Worker) {
			defer wg.Done()
			results[i] = p.opts.HealthCheck(ctx, w)
		}(i, w)
	}
	wg.Wait()

	var healthy []Worker
	for i, w := range candidates {
		if err := results[i]; err != nil {
			logger.Warningf(ctx, "worker %s failed health check: %s", w.ID(), err)
			continue
		}
		healthy = append(healthy, w)
	}
	return healthy
}

// Workers returns a snapshot of the live worker set.
func (p *Pool) Workers() []Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Worker, len(p.workers))
	copy(out, p.workers)
	return out
}

// Size returns the number of live workers.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Blacklist removes the worker from the live set and appends it to the
// persisted blacklist so later discoveries, in this process or another,
// skip it. Without a configured blacklist store the exclusion lasts only
// for this run, which is worth a warning rather than a silent downgrade.
func (p *Pool) Blacklist(ctx context.Context, w Worker, reason string) {
	p.mu.Lock()
	for i, live := range p.workers {
		if live.ID() == w.ID() {
			p.workers = append(p.workers[:i], p.workers[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	if p.opts.Blacklist == nil {
		logger.Warningf(ctx, "no blacklist file configured; not blacklisting worker %s (%s)", w.ID(), reason)
		return
	}
	logger.Errorf(ctx, "blacklisting worker %s: %s", w.ID(), reason)
	if err := p.opts.Blacklist.Add(w.ID(), reason, clock.Now(ctx)); err != nil {
		logger.Errorf(ctx, "failed to persist blacklist: %s", err)
	}
}

// ForEach runs op once per live worker, concurrently, and returns each
// worker's outcome positionally, matching the order of Workers(). Worker
// failures never propagate out of this call.
func (p *Pool) ForEach(ctx context.Context, op func(ctx context.Context, w Worker) error) []error {
	return forEach(ctx, p.Workers(), op)
}

// ForEachWithFailureHandler is ForEach except any worker whose op fails is
// handed to onFailure (which typically blacklists it) before the call
// returns; the other workers are unaffected.
func (p *Pool) ForEachWithFailureHandler(
	ctx context.Context,
	op func(ctx context.Context, w Worker) error,
	onFailure func(ctx context.Context, w Worker, err error),
) {
	workers := p.Workers()
	errs := forEach(ctx, workers, op)
	for i, err := range errs {
		if err != nil {
			onFailure(ctx, workers[i], err)
		}
	}
}

func forEach(ctx context.Context, workers []Worker, op func(ctx context.Context, w Worker) error) []error {
	errs := make([]error, len(workers))
	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w Worker) {
			defer wg.Done()
			errs[i] = op(ctx, w)
		}(i, w)
	}
	wg.Wait()
	return errs
}

// Close persists every worker's push cache and releases transports. It
// runs regardless of whether the run succeeded, so that the next run can
// resume faster.
func (p *Pool) Close(ctx context.Context) error {
	var err error
	if p.opts.CacheDir != "" {
		for id, cache := range p.caches {
			if saveErr := cache.save(p.cachePath(id)); saveErr != nil {
				err = multierr.Append(err, fmt.Errorf("failed to save push cache for %s: %w", id, saveErr))
			}
		}
	}
	for _, w := range p.Workers() {
		err = multierr.Append(err, w.Close())
	}
	return err
}

func (p *Pool) cachePath(workerID string) string {
	return filepath.Join(p.opts.CacheDir, workerID+".cache.json")
}
