// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ring implements a bounded byte buffer that retains the most
// recently written bytes.
package ring

import (
	"io"
	"sync"
)

// Buffer is an io.ReadWriter holding the last `size` bytes written to it.
// It is safe for a writer and a reader in different goroutines; in
// particular a command's output may still be streaming in while the bytes
// captured so far are read out.
type Buffer struct {
	mu   sync.Mutex
	buf  []byte
	size int
}

// NewBuffer returns a Buffer retaining the trailing size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{size: size}
}

// Write appends p, discarding the oldest bytes once the buffer is full.
// It never fails and always reports the full length of p as written.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.size {
		b.buf = b.buf[len(b.buf)-b.size:]
	}
	return len(p), nil
}

// Read drains retained bytes into p.
func (b *Buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

// String returns the retained bytes without draining them.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
