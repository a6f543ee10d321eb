// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

// Package command implements the pacemaker-controld CLI surface spec.md
// §6 names: an `agent` command carrying the `-V`/`-s`/`-h` flags, plus a
// `version` command,
// following the teacher's own command/ package layout (one file per
// subcommand, each a hashicorp/cli.Command).
package command

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/tahliar/pacemaker/internal/cib"
	"github.com/tahliar/pacemaker/internal/ctlrd"
	"github.com/tahliar/pacemaker/internal/membership"
	"github.com/tahliar/pacemaker/internal/rpc"
)

// Exit codes spec.md §6 fixes exactly.
const (
	ExitOK         = 0
	ExitUsage      = 64
	ExitUnavailable = 69
	ExitSoftware   = 70
	ExitIOErr      = 74
)

// AgentCommand runs the controller daemon in the foreground.
type AgentCommand struct {
	UI interface {
		Output(string)
		Error(string)
	}
}

func (c *AgentCommand) Help() string {
	return strings.TrimSpace(`
Usage: pacemaker-controld agent [options]

  Runs the cluster controller daemon in the foreground.

Options:

  -V              Increase log verbosity. Repeatable (-V -V, -V -V -V).
  -s              Run a configuration sanity check and exit, without
                  joining the cluster or starting the event loop.
  -h              Print this help text.
`)
}

func (c *AgentCommand) Synopsis() string {
	return "Run the cluster controller daemon"
}

// verbosity implements flag.Value so repeated -V flags (-V -V) simply
// increment a counter, matching spec.md §6's "increase verbosity,
// repeatable". A combined -VV is parsed as an unknown flag and rejected.
type verbosity int

func (v *verbosity) String() string { return fmt.Sprintf("%d", int(*v)) }
func (v *verbosity) Set(string) error {
	*v++
	return nil
}
func (v *verbosity) IsBoolFlag() bool { return true }

func (c *AgentCommand) Run(args []string) int {
	var verbose verbosity
	var sanity bool

	flags := flag.NewFlagSet("agent", flag.ContinueOnError)
	flags.Var(&verbose, "V", "increase verbosity (repeatable)")
	flags.BoolVar(&sanity, "s", false, "sanity check and exit")
	flags.Usage = func() { c.UI.Error(c.Help()) }
	if err := flags.Parse(args); err != nil {
		return ExitUsage
	}

	cfg := ctlrd.DefaultConfig()
	cfg.FromEnv()
	if cfg.NodeID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			c.UI.Error(fmt.Sprintf("pacemaker-controld: determine node id: %v", err))
			return ExitIOErr
		}
		cfg.NodeID = hostname
	}

	log := newLogger(cfg, int(verbose))

	if sanity {
		report, err := RunSanityCheck(cfg)
		if err != nil {
			c.UI.Error(err.Error())
			return ExitSoftware
		}
		c.UI.Output(report)
		return ExitOK
	}

	if err := cfg.Validate(); err != nil {
		c.UI.Error(err.Error())
		return ExitUsage
	}

	members, err := membership.New(membership.Config{NodeID: cfg.NodeID, BindAddr: cfg.BindAddr, BindPort: cfg.BindPort, LogOutput: log})
	if err != nil {
		c.UI.Error(fmt.Sprintf("pacemaker-controld: start membership: %v", err))
		return ExitUnavailable
	}
	if _, err := members.Join(peerAddrs(cfg.Peers)); err != nil {
		log.Warn("join seed peers failed, continuing standalone", "error", err)
	}

	peers, err := rpc.NewPool(log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("pacemaker-controld: start rpc pool: %v", err))
		return ExitSoftware
	}
	if err := peers.DialAll(cfg.Peers); err != nil {
		log.Warn("dial all peers failed, continuing with reachable subset", "error", err)
	}

	store := cib.NewMemStore([]byte(emptyCIB))

	d := ctlrd.New(cfg, log, members, peers, store, nil)

	metricsSrv, err := ctlrd.StartMetrics(cfg, log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("pacemaker-controld: start metrics: %v", err))
		return ExitSoftware
	}

	ctx, cancel := newShutdownContext()
	defer cancel()

	if err := d.Run(ctx); err != nil && err != ctx.Err() {
		log.Error("event loop exited with error", "error", err)
		_ = ctlrd.StopMetrics(ctx, metricsSrv)
		return ExitSoftware
	}
	_ = ctlrd.StopMetrics(ctx, metricsSrv)
	return ExitOK
}

func peerAddrs(peers map[string]string) []string {
	out := make([]string, 0, len(peers))
	for _, addr := range peers {
		out = append(out, addr)
	}
	return out
}

func newLogger(cfg *ctlrd.Config, verbose int) hclog.Logger {
	level := hclog.Info
	if cfg.Debug || verbose > 0 {
		level = hclog.Debug
	}
	if verbose > 1 {
		level = hclog.Trace
	}
	out := os.Stderr
	opts := &hclog.LoggerOptions{
		Name:       "pacemaker-controld",
		Level:      level,
		Output:     out,
		TimeFormat: time.RFC3339,
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			opts.Output = f
		}
	}
	return hclog.New(opts)
}

const emptyCIB = `<cib><configuration><nodes/><resources/><constraints/></configuration><status/></cib>`
