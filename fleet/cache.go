// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fleet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"

	"go.fleet.dev/fleetrunner/lib/jsonutil"
	"go.fleet.dev/fleetrunner/lib/logger"
	"go.fleet.dev/fleetrunner/lib/osmisc"
)

// fileCache remembers which file contents have already been pushed to a
// worker, keyed by content digest, so reruns can skip redundant transfers.
// It is persisted at pool teardown regardless of run outcome.
type fileCache struct {
	mu sync.Mutex
	// Digest of the pushed file to the destinations it was pushed to.
	Pushed map[string][]string `json:"pushed"`
}

func loadFileCache(path string) (*fileCache, error) {
	c := &fileCache{Pushed: make(map[string][]string)}
	exists, err := osmisc.FileExists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := jsonutil.ReadFromFile(path, c); err != nil {
			return nil, err
		}
	}
	if c.Pushed == nil {
		c.Pushed = make(map[string][]string)
	}
	return c, nil
}

func (c *fileCache) save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return jsonutil.WriteToFile(path, c)
}

func (c *fileCache) has(digest, dst string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.Pushed[digest] {
		if d == dst {
			return true
		}
	}
	return false
}

func (c *fileCache) add(digest, dst string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Pushed[digest] = append(c.Pushed[digest], dst)
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// cachingWorker wraps a Worker so that PushFile skips transfers whose
// content and destination are already present on the worker.
type cachingWorker struct {
	Worker
	cache *fileCache
}

func (w *cachingWorker) PushFile(ctx context.Context, src, dst string) error {
	digest, err := fileDigest(src)
	if err != nil {
		return err
	}
	if w.cache.has(digest, dst) {
		logger.Debugf(ctx, "skipping push of %s to %s:%s, already present", src, w.ID(), dst)
		return nil
	}
	if err := w.Worker.PushFile(ctx, src, dst); err != nil {
		return err
	}
	w.cache.add(digest, dst)
	return nil
}
