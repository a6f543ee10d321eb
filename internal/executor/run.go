// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

// Package executor implements the transition executor (spec.md §4.6): it
// consumes a transition graph, dispatches ready synapses to the local
// resource-agent executor or a peer controller, tracks per-synapse state,
// and aborts the remainder of the graph on timeout or failure.
package executor

import (
	"sort"
	"time"

	"github.com/tahliar/pacemaker/internal/graph"
)

// SynapseState is one of the five states spec.md §4.6 names.
type SynapseState int

const (
	Pending SynapseState = iota
	InFlight
	Confirmed
	Failed
	TimedOut
)

func (s SynapseState) String() string {
	switch s {
	case InFlight:
		return "in_flight"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return "pending"
	}
}

// Run tracks one in-progress transition: the graph being executed plus the
// mutable per-synapse state the executor flips as dispatch, confirmation,
// failure, and timeout events arrive.
type Run struct {
	Graph *graph.Graph

	states    map[uint64]SynapseState
	deadlines map[uint64]time.Time
	aborted   bool
}

// NewRun starts tracking g with every synapse Pending.
func NewRun(g *graph.Graph) *Run {
	r := &Run{
		Graph:     g,
		states:    make(map[uint64]SynapseState, len(g.Synapses)),
		deadlines: make(map[uint64]time.Time, len(g.Synapses)),
	}
	for _, s := range g.Synapses {
		r.states[s.ID] = Pending
	}
	return r
}

// State returns a synapse's current state.
func (r *Run) State(id uint64) SynapseState { return r.states[id] }

// Aborted reports whether the run has been aborted; pending synapses are
// never dispatched once true (spec.md §4.6 "discards pending synapses").
func (r *Run) Aborted() bool { return r.aborted }

// Ready returns every Pending synapse whose inputs are all Confirmed,
// ordered by descending priority and, within a priority tier, ascending
// synapse id for deterministic dispatch order (spec.md §4.6).
func (r *Run) Ready() []*graph.Synapse {
	if r.aborted {
		return nil
	}
	var ready []*graph.Synapse
	for _, s := range r.Graph.Synapses {
		if r.states[s.ID] != Pending {
			continue
		}
		if r.inputsConfirmed(s) {
			ready = append(ready, s)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return ready[i].ID < ready[j].ID
	})
	return ready
}

func (r *Run) inputsConfirmed(s *graph.Synapse) bool {
	for _, in := range s.Inputs {
		if r.states[in] != Confirmed {
			return false
		}
	}
	return true
}

// Dispatch marks id InFlight with an absolute deadline (spec.md §5
// "Timeouts are absolute deadlines, not durations from dispatch").
func (r *Run) Dispatch(id uint64, deadline time.Time) {
	r.states[id] = InFlight
	r.deadlines[id] = deadline
}

// Confirm marks id Confirmed, unblocking any synapse whose sole remaining
// unconfirmed input was id.
func (r *Run) Confirm(id uint64) {
	r.states[id] = Confirmed
}

// Fail marks id Failed and aborts the run: action failure is always an
// abort source for a resource's on-fail=stop/fence policy (spec.md §4.6
// "Abort sources"); callers that want a non-aborting failure policy (e.g.
// on-fail=ignore) should not call Fail for that synapse at all.
func (r *Run) Fail(id uint64) {
	r.states[id] = Failed
	r.Abort()
}

// CheckTimeouts scans in-flight synapses against now and marks any whose
// deadline has passed TimedOut, aborting the run if any were found.
func (r *Run) CheckTimeouts(now time.Time) []uint64 {
	var expired []uint64
	for id, st := range r.states {
		if st != InFlight {
			continue
		}
		if dl, ok := r.deadlines[id]; ok && now.After(dl) {
			r.states[id] = TimedOut
			expired = append(expired, id)
		}
	}
	if len(expired) > 0 {
		r.Abort()
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i] < expired[j] })
	return expired
}

// Abort discards every Pending synapse (spec.md §4.6: "the executor
// drains in-flight actions ... does not cancel them"; only Pending ones
// are ever discarded). Idempotent.
func (r *Run) Abort() {
	r.aborted = true
}

// Done reports whether every synapse has reached a terminal state
// (Confirmed, Failed, or TimedOut) or the run was aborted and nothing
// remains in flight.
func (r *Run) Done() bool {
	for _, st := range r.states {
		if st == Pending || st == InFlight {
			if r.aborted && st == Pending {
				continue // discarded, not awaited
			}
			return false
		}
	}
	return true
}
