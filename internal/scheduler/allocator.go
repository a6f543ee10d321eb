// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"github.com/hashicorp/go-hclog"
	"github.com/tahliar/pacemaker/internal/cluster"
)

// AssignAll mutates ws so every primitive has either a NextNode or an
// explicit stopped decision (spec.md §4.2). It walks top-level resources
// in declaration order, which is the allocator's priority order.
func AssignAll(ws *cluster.WorkingSet, log hclog.Logger) error {
	for _, id := range ws.ResourceOrder {
		r := ws.Resources[id]
		if r.Parent != "" {
			continue // reached through its parent's assignment
		}
		if err := assignResource(ws, r, log); err != nil {
			return err
		}
	}
	return nil
}

// assignResource dispatches to the variant-specific assignment strategy
// (spec.md design notes "capability trait exposing assign(prefer)").
func assignResource(ws *cluster.WorkingSet, r *cluster.Resource, log hclog.Logger) error {
	switch r.Variant {
	case cluster.VariantGroup:
		return assignGroup(ws, r, log)
	case cluster.VariantClone, cluster.VariantBundle:
		return assignClone(ws, r, log)
	default:
		return assignPrimitive(ws, r, log)
	}
}

// assignPrimitive implements spec.md §4.2 steps 1-5 for a single primitive
// resource, including the recursive-colocation-primary and cycle-guard
// behavior the design notes call out.
func assignPrimitive(ws *cluster.WorkingSet, r *cluster.Resource, log hclog.Logger) error {
	if r.Allocating {
		log.Warn("allocation loop detected, leaving assignment unchanged", "resource", r.ID)
		return nil
	}
	if !r.Provisional {
		return nil // already assigned this run (e.g. forced by a dependent)
	}
	r.Allocating = true
	defer func() { r.Allocating = false }()

	candidates, err := candidateScores(ws, r.ID, r.ID)
	if err != nil {
		return err
	}
	if r.Primitive != nil {
		for nodeID, s := range r.Primitive.Allowed {
			if _, ok := candidates[nodeID]; ok {
				candidates[nodeID] = candidates[nodeID].Add(s)
			}
		}
	}
	applyTicket(ws, r, candidates)

	current := r.CurrentNode()
	if current != "" && r.Running() {
		if _, ok := candidates[current]; ok {
			candidates[current] = candidates[current].Add(r.Meta.Stickiness)
		}
	}

	for _, col := range ws.ColocationsAsDependent(r.ID) {
		primary := ws.Resources[col.Primary]
		if primary == nil {
			continue
		}
		if primary.Provisional {
			if err := assignResource(ws, primary, log); err != nil {
				return err
			}
		}
		if primary.NextNode == "" {
			if col.Score.Banned() {
				continue // nothing to avoid, primary isn't running anywhere
			}
			continue
		}
		if _, ok := candidates[primary.NextNode]; ok {
			candidates[primary.NextNode] = candidates[primary.NextNode].Add(col.Score)
		}
	}

	applyWithThisColocations(ws, r, candidates)

	recordAssignment(ws, r, candidates, current, log)
	return nil
}

// applyWithThisColocations implements spec.md §4.2 step 3's second sentence:
// the "with-this" direction, where r is the primary of a colocation and a
// positive score pulls r itself toward an already-placed dependent. Unlike
// the mandatory "this-with" direction above, this never forces recursive
// assignment of the dependent — it only reacts to a dependent that already
// happened to be placed — and only applies when the colocation's Influence
// flag is set and r is neither failed nor about to be pushed off its current
// node, matching the "avoids needless shuffling" rationale in the doc
// comment on Colocation.Influence.
func applyWithThisColocations(ws *cluster.WorkingSet, r *cluster.Resource, candidates map[string]cluster.Score) {
	if r.Failed {
		return
	}
	aboutToMove := false
	if current := r.CurrentNode(); current != "" {
		if s, ok := candidates[current]; ok {
			aboutToMove = s.Banned()
		}
	}
	if aboutToMove {
		return
	}

	for _, col := range ws.ColocationsAsPrimary(r.ID) {
		if !col.Influence || col.Score <= cluster.Zero {
			continue
		}
		dep := ws.Resources[col.Dependent]
		if dep == nil || dep.Provisional || dep.NextNode == "" {
			continue // not yet placed this run; nothing to react to
		}
		if _, ok := candidates[dep.NextNode]; ok {
			candidates[dep.NextNode] = candidates[dep.NextNode].Add(col.Score)
		}
	}
}

// recordAssignment picks a node from candidates and records the decision on
// r and, on success, increments the chosen node's Count (spec.md §4.2 step
// 5 and the §9 open question: managed instances always increment Count).
func recordAssignment(ws *cluster.WorkingSet, r *cluster.Resource, candidates map[string]cluster.Score, current string, log hclog.Logger) {
	node, ok := chooseNode(ws, candidates, current)
	if !ok {
		log.Debug("no eligible node for resource, stopping", "resource", r.ID)
		r.NextNode = ""
		if r.Primitive != nil {
			r.Primitive.NextRole = cluster.RoleStopped
		}
		r.Provisional = false
		return
	}

	r.NextNode = node
	if r.Primitive != nil {
		r.Primitive.NextRole = cluster.RoleStarted
	}
	if r.Meta.Managed || !r.Meta.Orphan {
		// Managed instances (and non-orphans) always increment Count; see
		// SPEC_FULL.md §9 for the orphan policy this resolves.
		ws.Nodes[node].Count++
	}
	r.Provisional = false
}

// assignGroup places every child on the node the first child resolves to,
// emulating the group's implicit mandatory colocation chain: later
// children only consider the first child's chosen node.
func assignGroup(ws *cluster.WorkingSet, g *cluster.Resource, log hclog.Logger) error {
	if len(g.Children) == 0 {
		g.Provisional = false
		return nil
	}
	first := ws.Resources[g.Children[0]]
	if err := assignPrimitive(ws, first, log); err != nil {
		return err
	}
	for _, childID := range g.Children[1:] {
		child := ws.Resources[childID]
		if !child.Provisional {
			continue
		}
		if first.NextNode == "" {
			recordAssignment(ws, child, map[string]cluster.Score{}, child.CurrentNode(), log)
			continue
		}
		candidates, err := candidateScores(ws, child.ID, child.ID)
		if err != nil {
			return err
		}
		pinned := make(map[string]cluster.Score, 1)
		if s, ok := candidates[first.NextNode]; ok && !s.Banned() {
			pinned[first.NextNode] = s
		}
		recordAssignment(ws, child, pinned, child.CurrentNode(), log)
	}
	g.NextNode = first.NextNode
	g.Provisional = false
	return nil
}
