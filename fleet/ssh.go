// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fleet

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"go.fleet.dev/fleetrunner/lib/logger"
	"go.fleet.dev/fleetrunner/lib/retry"
)

const (
	// The allowed timeout for a single attempt at establishing an SSH
	// connection.
	connectAttemptTimeout = 10 * time.Second

	// The allowed timeout to establish an SSH connection, possibly
	// including many attempts.
	totalConnectTimeout = 2 * time.Minute
)

// defaultConnectBackoff paces reconnection attempts to a worker.
func defaultConnectBackoff() retry.Backoff {
	return retry.WithMaxDuration(retry.NewConstantBackoff(time.Second), totalConnectTimeout)
}

// SSHWorker runs commands on a remote machine over SSH; file pushes go
// over SFTP on the same connection. The connection is established lazily
// on first use.
type SSHWorker struct {
	id      string
	addr    string
	config  *ssh.ClientConfig
	mu      sync.Mutex
	client  *ssh.Client
	backoff retry.Backoff
}

// SSHConfig returns a client config for the given user and private key.
func SSHConfig(user string, privateKey []byte) (*ssh.ClientConfig, error) {
	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectAttemptTimeout,
	}, nil
}

// NewSSHWorker returns a worker addressed by host:port that authenticates
// with the private key in keyFile.
func NewSSHWorker(id, addr, user, keyFile string) (*SSHWorker, error) {
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key for worker %s: %w", id, err)
	}
	config, err := SSHConfig(user, key)
	if err != nil {
		return nil, err
	}
	return &SSHWorker{
		id:      id,
		addr:    addr,
		config:  config,
		backoff: defaultConnectBackoff(),
	}, nil
}

func (w *SSHWorker) ID() string { return w.id }

// connect dials the worker if no live connection exists.
func (w *SSHWorker) connect(ctx context.Context) (*ssh.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		return w.client, nil
	}
	var client *ssh.Client
	err := retry.Retry(ctx, w.backoff, func() error {
		var err error
		client, err = ssh.Dial("tcp", w.addr, w.config)
		if err != nil {
			logger.Debugf(ctx, "connection attempt to %s failed: %s", w.addr, err)
		}
		return err
	}, nil)
	if err != nil {
		return nil, WorkerFailure{WorkerID: w.id, Err: fmt.Errorf("failed to connect to %s: %w", w.addr, err)}
	}
	w.client = client
	return client, nil
}

// disconnect drops the cached connection so the next use redials.
func (w *SSHWorker) disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
}

func (w *SSHWorker) CheckHealth(ctx context.Context) error {
	return w.Run(ctx, []string{"true"}, nil, nil)
}

// Run executes the command in a fresh session. On context cancellation the
// remote process group is signaled and the session torn down.
func (w *SSHWorker) Run(ctx context.Context, command []string, stdout, stderr io.Writer) error {
	client, err := w.connect(ctx)
	if err != nil {
		return err
	}
	session, err := client.NewSession()
	if err != nil {
		w.disconnect()
		return WorkerFailure{WorkerID: w.id, Err: fmt.Errorf("failed to open session: %w", err)}
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	// TERM-dumb, to avoid a loop fetching a cursor position.
	cmd := strings.Join(append([]string{"TERM=dumb;"}, command...), " ")
	if err := session.Start(cmd); err != nil {
		w.disconnect()
		return WorkerFailure{WorkerID: w.id, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return ctx.Err()
	}
}

// PushFile copies a local file to the worker over SFTP, creating parent
// directories as needed.
func (w *SSHWorker) PushFile(ctx context.Context, src, dst string) error {
	client, err := w.connect(ctx)
	if err != nil {
		return err
	}
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		w.disconnect()
		return WorkerFailure{WorkerID: w.id, Err: fmt.Errorf("failed to open sftp client: %w", err)}
	}
	defer sftpClient.Close()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := sftpClient.MkdirAll(path.Dir(dst)); err != nil {
		return WorkerFailure{WorkerID: w.id, Err: err}
	}
	out, err := sftpClient.Create(dst)
	if err != nil {
		return WorkerFailure{WorkerID: w.id, Err: err}
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return WorkerFailure{WorkerID: w.id, Err: err}
	}
	return nil
}

func (w *SSHWorker) Close() error {
	w.disconnect()
	return nil
}
