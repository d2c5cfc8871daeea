// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Discoverer enumerates the workers currently attached to the fleet. The
// underlying mechanism (a device config, mDNS, an inventory service) is a
// collaborator this package does not prescribe.
type Discoverer interface {
	Discover(ctx context.Context) ([]Worker, error)
}

// WorkerConfig describes one worker in a fleet config file.
type WorkerConfig struct {
	// ID is the worker's identifier. Required.
	ID string `json:"id"`

	// Transport selects how to reach the worker: "local" or "ssh".
	Transport string `json:"transport"`

	// Dir is the working directory for a local worker's commands.
	Dir string `json:"dir,omitempty"`

	// Addr is the host:port of an SSH worker.
	Addr string `json:"addr,omitempty"`

	// User is the SSH login user.
	User string `json:"user,omitempty"`

	// SSHKey is the path to the private key authorized on the worker.
	SSHKey string `json:"ssh_key,omitempty"`
}

// StaticDiscoverer derives workers from a fixed list of configs, the
// shape read from a JSON fleet config file.
type StaticDiscoverer struct {
	configs []WorkerConfig
}

func NewStaticDiscoverer(configs []WorkerConfig) *StaticDiscoverer {
	return &StaticDiscoverer{configs: configs}
}

// LoadFleetConfig reads a JSON list of worker configs from path.
func LoadFleetConfig(path string) (*StaticDiscoverer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open fleet config: %w", err)
	}
	var configs []WorkerConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("could not unmarshal fleet config as a JSON list: %w", err)
	}
	return NewStaticDiscoverer(configs), nil
}

// LocalFleet returns a discoverer yielding n local workers, for
// single-host runs and tests.
func LocalFleet(n int) *StaticDiscoverer {
	configs := make([]WorkerConfig, n)
	for i := range configs {
		configs[i] = WorkerConfig{ID: fmt.Sprintf("local-%d", i), Transport: "local"}
	}
	return NewStaticDiscoverer(configs)
}

func (d *StaticDiscoverer) Discover(ctx context.Context) ([]Worker, error) {
	var workers []Worker
	for _, cfg := range d.configs {
		w, err := deriveWorker(cfg)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, nil
}

func deriveWorker(cfg WorkerConfig) (Worker, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("worker config missing `id` field")
	}
	switch cfg.Transport {
	case "local", "":
		return NewLocalWorker(cfg.ID, cfg.Dir), nil
	case "ssh":
		if cfg.Addr == "" || cfg.SSHKey == "" {
			return nil, fmt.Errorf("ssh worker %q must set `addr` and `ssh_key`", cfg.ID)
		}
		return NewSSHWorker(cfg.ID, cfg.Addr, cfg.User, cfg.SSHKey)
	default:
		return nil, fmt.Errorf("worker %q has unknown transport %q", cfg.ID, cfg.Transport)
	}
}
