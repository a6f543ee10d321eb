// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

// Package ctlrd wires the controller's components (internal/cib,
// internal/scheduler, internal/graph, internal/executor, internal/fsm,
// internal/election, internal/membership, internal/rpc) into the
// single-threaded event loop spec.md §5 describes, and carries the
// ambient daemon concerns (config, logging, metrics) SPEC_FULL.md §6
// adds around that core.
package ctlrd

import (
	"fmt"
	"os"
	"strconv"

	sockaddr "github.com/hashicorp/go-sockaddr"
	"github.com/hashicorp/go-sockaddr/template"
	homedir "github.com/mitchellh/go-homedir"
)

// Config is the controller's runtime configuration, populated from flags
// and environment only (the CIB's own config-file parser stays out of
// this module's scope per spec.md §1).
type Config struct {
	NodeID   string
	DataDir  string
	BindAddr string
	BindPort int
	Peers    map[string]string // peer node id -> dial address

	LogFile  string // HA_logfile
	Debug    bool   // HA_debug
	FailFast bool   // PCMK_fail_fast

	MetricsAddr string // status HTTP endpoint, e.g. ":9090"
}

// DefaultConfig returns a Config with the teacher's client/config-style
// struct-of-defaults pattern: safe standalone values, then FromEnv
// overlays operator-supplied environment variables.
func DefaultConfig() *Config {
	dir, err := homedir.Expand("~/.pacemaker")
	if err != nil {
		dir = "/var/lib/pacemaker"
	}
	return &Config{
		DataDir:     dir,
		BindPort:    7700,
		Peers:       make(map[string]string),
		MetricsAddr: ":9090",
	}
}

// FromEnv overlays HA_logfile, HA_debug, and PCMK_fail_fast onto c.
// HA_cluster_type is not read.
func (c *Config) FromEnv() {
	if v := os.Getenv("HA_logfile"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("HA_debug"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
	if v := os.Getenv("PCMK_fail_fast"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.FailFast = b
		}
	}
}

// Validate reports the first configuration problem found, if any. As a side
// effect it resolves BindAddr through go-sockaddr's template language (so
// operators can write "{{GetPrivateIP}}" the way consul/nomad agent config
// does) and checks the result parses as a real address.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("ctlrd: node id is required")
	}
	if c.BindPort <= 0 || c.BindPort > 65535 {
		return fmt.Errorf("ctlrd: invalid bind port %d", c.BindPort)
	}
	if c.BindAddr != "" {
		resolved, err := template.Parse(c.BindAddr)
		if err != nil {
			return fmt.Errorf("ctlrd: bind address template: %w", err)
		}
		if _, err := sockaddr.NewIPAddr(resolved); err != nil {
			return fmt.Errorf("ctlrd: bind address %q is not a valid ip: %w", resolved, err)
		}
		c.BindAddr = resolved
	}
	return nil
}
