// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import "github.com/tahliar/pacemaker/internal/cluster"

type orderEdge struct {
	thenID uint64
	typ    cluster.OrderType
}

// PropagateOrdering resolves every raw Ordering edge to concrete actions
// and propagates runnable/mandatory flags to a fixed point (spec.md §4.4).
// Unresolved (late-bound) orderings are skipped, matching spec.md §4.1's
// "late-bound actions are allowed and resolved by name" — one that never
// gets synthesized this run simply doesn't constrain anything.
func PropagateOrdering(ws *cluster.WorkingSet) {
	byFirst := make(map[uint64][]orderEdge)

	for _, o := range ws.Orderings {
		first, ok1 := ws.ResolveAction(o.First)
		then, ok2 := ws.ResolveAction(o.Then)
		if !ok1 || !ok2 {
			continue
		}
		first.Before = append(first.Before, then.ID)
		then.After = append(then.After, first.ID)
		byFirst[first.ID] = append(byFirst[first.ID], orderEdge{thenID: then.ID, typ: o.Type})
	}

	actionByID := make(map[uint64]*cluster.Action, len(ws.Actions))
	for _, a := range ws.Actions {
		actionByID[a.ID] = a
	}

	queue := make([]uint64, 0, len(ws.Actions))
	queued := make(map[uint64]bool, len(ws.Actions))
	for _, a := range ws.Actions {
		queue = append(queue, a.ID)
		queued[a.ID] = true
	}

	// Bounded worklist: each edge can only tighten its target twice
	// (optional->mandatory, runnable->not-runnable), so this always
	// terminates well within the 2*|edges| bound spec.md §4.4 names.
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false
		first := actionByID[id]
		if first == nil {
			continue
		}
		for _, edge := range byFirst[id] {
			then := actionByID[edge.thenID]
			if then == nil {
				continue
			}
			changed := false

			if edge.typ&cluster.OrderImpliesThen != 0 {
				if first.Runnable() && !first.Optional() && (then.Optional() || !then.Runnable()) {
					then.Flags = then.Flags.Clear(cluster.FlagOptional).Set(cluster.FlagRunnable)
					changed = true
				}
			}
			if edge.typ&cluster.OrderRunnableLeft != 0 {
				if !first.Runnable() && then.Runnable() {
					then.Flags = then.Flags.Clear(cluster.FlagRunnable)
					changed = true
				}
			}

			if changed && !queued[then.ID] {
				queue = append(queue, then.ID)
				queued[then.ID] = true
			}
		}
	}
}

// Interleave pairs each "then" instance of an interleaved clone/bundle
// ordering with a compatible "first" instance on the same node, replacing
// the coarse parent-level edge with per-instance edges (spec.md §4.4
// "Interleaving"). A "then" instance with no compatible "first" instance
// is forced unassigned when the edge implies runnability propagation.
// It returns the per-instance edges rather than appending to ws.Orderings
// directly, so the caller controls how the coarse edge is replaced.
func Interleave(ws *cluster.WorkingSet, firstClone, thenClone *cluster.Resource, edgeType cluster.OrderType) []*cluster.Ordering {
	if firstClone.Clone == nil || thenClone.Clone == nil || !thenClone.Clone.Interleave {
		return nil
	}

	firstByNode := make(map[string]string, len(firstClone.Children))
	for _, id := range firstClone.Children[1:] { // [0] is the template, not an instance
		inst := ws.Resources[id]
		if inst != nil && inst.NextNode != "" {
			firstByNode[inst.NextNode] = id
		}
	}

	var out []*cluster.Ordering
	for _, thenID := range thenClone.Children[1:] {
		thenInst := ws.Resources[thenID]
		if thenInst == nil || thenInst.NextNode == "" {
			continue
		}
		firstID, ok := firstByNode[thenInst.NextNode]
		if !ok {
			if edgeType&(cluster.OrderImpliesThen|cluster.OrderRunnableLeft) != 0 {
				thenInst.NextNode = ""
				if thenInst.Primitive != nil {
					thenInst.Primitive.NextRole = cluster.RoleStopped
				}
			}
			continue
		}
		out = append(out, &cluster.Ordering{
			ID:    firstID + "-" + thenID + "-interleave",
			First: cluster.ActionKey{Resource: firstID, Task: cluster.TaskStart},
			Then:  cluster.ActionKey{Resource: thenID, Task: cluster.TaskStart},
			Type:  edgeType,
		})
	}
	return out
}

// applyInterleaving scans the raw ordering edges synthesized so far for
// clone/bundle pairs with interleave=true on the "then" side and splices in
// Interleave's per-instance edges in place of each coarse parent-level edge
// (spec.md §4.4 "Interleaving"). Non-clone edges, and clone edges that don't
// qualify, pass through unchanged. Must run before PropagateOrdering so the
// fixed-point worklist sees the per-instance edges rather than the coarse
// ones they replace.
func applyInterleaving(ws *cluster.WorkingSet) {
	original := ws.Orderings
	kept := make([]*cluster.Ordering, 0, len(original))
	var added []*cluster.Ordering

	for _, o := range original {
		first := ws.Resources[o.First.Resource]
		then := ws.Resources[o.Then.Resource]
		if first == nil || then == nil || first.Clone == nil || then.Clone == nil || !then.Clone.Interleave {
			kept = append(kept, o)
			continue
		}
		added = append(added, Interleave(ws, first, then, o.Type)...)
	}

	ws.Orderings = append(kept, added...)
}
