// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"
	uuid "github.com/hashicorp/go-uuid"
	"github.com/tahliar/pacemaker/internal/graph"
	"github.com/tahliar/pacemaker/internal/rpc"
)

const defaultActionTimeout = 20 * time.Second

// LocalAgent is the local resource-agent executor collaborator spec.md §1
// keeps external to this module's scope; the transition executor only
// needs to hand it an action and later learn whether it confirmed.
type LocalAgent interface {
	Execute(ctx context.Context, action graph.ActionSet) error
}

// Dispatcher drives one Run to completion: for every ready synapse it
// either hands the action to the LocalAgent (on_node == selfNode) or sends
// an RPC envelope to the owning peer (spec.md §4.6 "Dispatch target
// selection").
type Dispatcher struct {
	log      hclog.Logger
	selfNode string
	local    LocalAgent
	peers    *rpc.Pool
}

// NewDispatcher wires a Dispatcher for the given local node identity.
func NewDispatcher(selfNode string, local LocalAgent, peers *rpc.Pool, log hclog.Logger) *Dispatcher {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Dispatcher{selfNode: selfNode, local: local, peers: peers, log: log}
}

// Step dispatches every currently-ready synapse in r once (one "tick" of
// the single-threaded event loop's executor phase); callers re-invoke it
// as confirmations and timeouts arrive. It never blocks on a remote
// confirmation — local actions run synchronously here since LocalAgent's
// contract is a single blocking call per spec.md §1's "local resource-agent
// executor" being a thin external collaborator, but RPC dispatch is
// fire-and-forget, with confirmation arriving later over the peer
// connection and fed back in through Confirm/Fail.
func (d *Dispatcher) Step(ctx context.Context, r *Run) error {
	for _, s := range r.Ready() {
		deadline := time.Now().Add(timeoutFor(s))
		r.Dispatch(s.ID, deadline)

		ref, err := uuid.GenerateUUID()
		if err != nil {
			return fmt.Errorf("executor: mint action reference: %w", err)
		}

		start := time.Now()
		if s.Action.Node == d.selfNode || s.Action.Node == "" {
			if d.local == nil {
				r.Fail(s.ID)
				metrics.IncrCounter([]string{"executor", "failed"}, 1)
				continue
			}
			if err := d.local.Execute(ctx, s.Action); err != nil {
				d.log.Warn("local action failed", "resource", s.Action.Resource, "task", s.Action.Task, "error", err)
				r.Fail(s.ID)
				metrics.IncrCounter([]string{"executor", "failed"}, 1)
				continue
			}
			r.Confirm(s.ID)
			metrics.MeasureSince([]string{"executor", "local_action"}, start)
			continue
		}

		env := rpc.Envelope{
			From: d.selfNode, To: s.Action.Node, Type: rpc.TypeLRMD,
			Subtype: s.Action.Task, Reference: ref, PayloadXML: nil,
		}
		if err := d.peers.Send(s.Action.Node, env); err != nil {
			d.log.Warn("rpc dispatch failed", "peer", s.Action.Node, "error", err)
			r.Fail(s.ID)
			metrics.IncrCounter([]string{"executor", "failed"}, 1)
			continue
		}
		metrics.IncrCounter([]string{"executor", "dispatched"}, 1)
	}
	return nil
}

func timeoutFor(s *graph.Synapse) time.Duration {
	if s.Action.Timeout <= 0 {
		return defaultActionTimeout
	}
	return time.Duration(s.Action.Timeout) * time.Millisecond
}
