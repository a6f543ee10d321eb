// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

// Package scheduler implements the policy engine: the pure function
// (WorkingSet) -> TransitionGraph spec.md §2 calls the allocator + ordering
// constraint propagator.
package scheduler

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"
	"github.com/tahliar/pacemaker/internal/cluster"
	"github.com/tahliar/pacemaker/internal/graph"
)

// Schedule runs the full policy engine pipeline against ws and returns the
// resulting transition graph (spec.md §2 "pure function (WorkingSet) ->
// TransitionGraph"). ws is mutated in place per spec.md §3's lifecycle
// ("allocator mutates resource next_role/assigned node and Node count");
// callers discard it afterward.
func Schedule(ws *cluster.WorkingSet, transitionID int, log hclog.Logger) (*graph.Graph, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	defer metrics.MeasureSince([]string{"scheduler", "run"}, time.Now())

	if err := AssignAll(ws, log); err != nil {
		return nil, err
	}
	SynthesizeActions(ws)
	applyInterleaving(ws)
	PropagateOrdering(ws)

	runnable := make(map[uint64]bool, len(ws.Actions))
	for _, a := range ws.Actions {
		if a.Runnable() {
			runnable[a.ID] = true
		}
	}

	g := graph.New(transitionID)
	for _, a := range ws.Actions {
		if !runnable[a.ID] {
			continue
		}
		g.AddSynapse(&graph.Synapse{
			ID:       a.ID,
			Priority: actionPriority(a),
			Action:   actionToSet(a),
			Inputs:   runnableInputs(a, runnable),
		})
	}
	graph.Reduce(g)

	metrics.IncrCounter([]string{"scheduler", "synapses"}, float32(len(g.Synapses)))
	return g, nil
}

func actionPriority(a *cluster.Action) int {
	switch a.Task {
	case cluster.TaskStop, cluster.TaskDemote, cluster.TaskStopZero, cluster.TaskStoppedZero:
		return 1
	default:
		return 0
	}
}

func runnableInputs(a *cluster.Action, runnable map[uint64]bool) []uint64 {
	var ids []uint64
	for _, depID := range a.After {
		if runnable[depID] {
			ids = append(ids, depID)
		}
	}
	return ids
}

func actionToSet(a *cluster.Action) graph.ActionSet {
	kind := graph.KindRscOp
	switch {
	case a.Task == cluster.TaskFence:
		kind = graph.KindCrmEvent
	case a.Pseudo():
		kind = graph.KindPseudoEvent
	}
	return graph.ActionSet{
		Kind:       kind,
		ID:         a.ID,
		Task:       a.Task.String(),
		Resource:   a.Resource,
		Node:       a.Node,
		NodeUUID:   a.Node,
		Timeout:    a.Timeout,
		Interval:   a.Interval,
		Attributes: a.Attributes,
	}
}
