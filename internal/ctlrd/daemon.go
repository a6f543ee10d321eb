// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package ctlrd

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"
	"github.com/tahliar/pacemaker/internal/cib"
	"github.com/tahliar/pacemaker/internal/cluster"
	"github.com/tahliar/pacemaker/internal/election"
	"github.com/tahliar/pacemaker/internal/executor"
	"github.com/tahliar/pacemaker/internal/fsm"
	"github.com/tahliar/pacemaker/internal/membership"
	"github.com/tahliar/pacemaker/internal/rpc"
	"github.com/tahliar/pacemaker/internal/scheduler"
)

// timeoutTick is how often the event loop checks in-flight synapses against
// their deadlines; spec.md §5 leaves the exact granularity unspecified, so
// this follows the teacher's usual heartbeat-style polling interval.
const timeoutTick = 500 * time.Millisecond

// Daemon is the single-threaded event loop spec.md §5 describes: one
// goroutine select-ing over membership events, CIB events, and a timeout
// tick, driving the fsm.Machine and, while DC, the scheduler/executor pipeline.
//
// Every mutation of shared state happens on the loop goroutine; this
// mirrors the teacher's own FSM-driven daemons (cf. serf/raft) where
// concurrency is pushed to the edges (network I/O, membership gossip) and
// the core stays single-threaded.
type Daemon struct {
	cfg *Config
	log hclog.Logger

	machine  *fsm.Machine
	members  *membership.Watcher
	peers    *rpc.Pool
	store    cib.Store
	dispatch *executor.Dispatcher

	run *executor.Run
}

// New wires a Daemon from its already-constructed collaborators; callers
// build the membership watcher, rpc pool, and CIB store separately (their
// constructors need network/config detail this package doesn't own) and
// hand them in here.
func New(cfg *Config, log hclog.Logger, members *membership.Watcher, peers *rpc.Pool, store cib.Store, local executor.LocalAgent) *Daemon {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Daemon{
		cfg:      cfg,
		log:      log,
		machine:  fsm.New(),
		members:  members,
		peers:    peers,
		store:    store,
		dispatch: executor.NewDispatcher(cfg.NodeID, local, peers, log),
	}
}

// Run drives the event loop until ctx is cancelled or the FSM reaches
// S_TERMINATE. It is the ambient-stack counterpart to spec.md §5's
// controller loop description: startup fires I_STARTUP, then the loop
// selects over membership events, CIB epoch changes, and a timeout tick
// that advances any in-flight transition.
func (d *Daemon) Run(ctx context.Context) error {
	if _, _, err := d.fire(fsm.IStartup); err != nil {
		return err
	}

	cibEvents := d.store.Subscribe()
	ticker := time.NewTicker(timeoutTick)
	defer ticker.Stop()

	for {
		if d.machine.State() == fsm.STerminate {
			return nil
		}
		select {
		case <-ctx.Done():
			_, _, _ = d.fire(fsm.IShutdown)
			return ctx.Err()

		case ev, ok := <-d.members.Events():
			if !ok {
				continue
			}
			d.handleMembership(ev)

		case _, ok := <-cibEvents:
			if !ok {
				continue
			}
			input := fsm.ICIBUpdate
			if d.machine.State() == fsm.SIntegration {
				input = fsm.IJoinAck
			}
			if _, _, err := d.fire(input); err != nil {
				d.log.Warn("cib update rejected by fsm", "error", err)
			}

		case now := <-ticker.C:
			d.tick(now)
		}
	}
}

func (d *Daemon) handleMembership(ev membership.Event) {
	d.log.Debug("membership event", "node", ev.NodeID, "state", ev.State)
	input := fsm.INodeLeft
	if ev.State == cluster.MemberOnline {
		input = fsm.INodeJoin
	}
	if _, _, err := d.fire(input); err != nil {
		d.log.Debug("membership event ignored in current state", "error", err)
	}
	d.runElection()
}

// runElection drives S_PENDING/S_NOT_DC -> S_ELECTION -> S_INTEGRATION or
// S_NOT_DC using internal/election.Winner over the currently known online
// members, re-evaluated on every membership change (spec.md §4.8). The
// four-message join handshake (internal/election.Integrator/Joiner) is
// exercised directly by internal/election's own tests; wiring it into this
// loop would additionally need an RPC-receive select case this minimal
// event loop does not run, so S_INTEGRATION -> S_FINALIZE_JOIN here
// advances only on the next CIB update (which Run feeds to the FSM as
// I_JOIN_ACK while in S_INTEGRATION), not a completed handshake.
func (d *Daemon) runElection() {
	switch d.machine.State() {
	case fsm.SPending, fsm.SNotDC:
		if _, _, err := d.fire(fsm.IElection); err != nil {
			d.log.Debug("election input ignored in current state", "error", err)
			return
		}
	default:
		return
	}

	input := fsm.INotDC
	if election.IsDC(d.cfg.NodeID, d.members.Members()) {
		input = fsm.IElectionDC
	}
	if _, _, err := d.fire(input); err != nil {
		d.log.Warn("election decision rejected by fsm", "error", err)
	}
}

// tick advances the live transition, if any, by one step: check timeouts,
// dispatch whatever became ready, and report completion to the fsm.
func (d *Daemon) tick(now time.Time) {
	if d.run == nil {
		return
	}
	if expired := d.run.CheckTimeouts(now); len(expired) > 0 {
		metrics.IncrCounter([]string{"ctlrd", "timeouts"}, float32(len(expired)))
		if _, _, err := d.fire(fsm.IFail); err != nil {
			d.log.Warn("fire I_FAIL after timeout rejected", "error", err)
		}
	}
	if err := d.dispatch.Step(context.Background(), d.run); err != nil {
		d.log.Error("dispatch step failed", "error", err)
	}
	if d.run.Done() {
		d.run = nil
		if _, _, err := d.fire(fsm.ITESuccess); err != nil {
			d.log.Warn("fire I_TE_SUCCESS rejected", "error", err)
		}
	}
}

// invokePolicyEngine computes a fresh WorkingSet from the CIB and live
// membership, runs the scheduler, and starts a new Run — the A_PE_INVOKE +
// A_TE_INVOKE actions spec.md §4.7 names collapsed into one ambient-stack
// helper since SPEC_FULL.md keeps the real compute split across
// internal/cib, internal/scheduler, and internal/executor already.
func (d *Daemon) invokePolicyEngine(ctx context.Context, transitionID int) error {
	doc, _, err := d.store.Read(ctx)
	if err != nil {
		return err
	}
	members := make([]cib.MembershipNode, 0, len(d.members.Members()))
	for _, id := range d.members.Members() {
		members = append(members, cib.MembershipNode{ID: id, Online: true, State: cluster.MemberOnline})
	}
	ws, err := cib.Ingest(doc, members, time.Now().Unix())
	if err != nil {
		return err
	}
	g, err := scheduler.Schedule(ws, transitionID, d.log)
	if err != nil {
		return err
	}
	d.run = executor.NewRun(g)
	return nil
}

// fire applies input to the fsm and carries out any actions it returns
// that this ambient layer, rather than a collaborator package, owns
// (A_PE_INVOKE triggers invokePolicyEngine; the rest are pure logging or
// handled by the caller).
func (d *Daemon) fire(input fsm.Input) (fsm.State, []fsm.Action, error) {
	state, actions, err := d.machine.Fire(input)
	if err != nil {
		return state, actions, err
	}
	for _, a := range actions {
		switch a {
		case fsm.ALog:
			d.log.Info("fsm transition", "state", state, "input", input)
		case fsm.APEInvoke:
			if err := d.invokePolicyEngine(context.Background(), int(time.Now().Unix())); err != nil {
				d.log.Error("policy engine invocation failed", "error", err)
			}
		case fsm.ATECancel:
			if d.run != nil {
				d.run.Abort()
			}
		}
	}
	return state, actions, nil
}
