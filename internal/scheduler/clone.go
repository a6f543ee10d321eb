// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-set/v3"
	"github.com/tahliar/pacemaker/internal/cluster"
)

// assignClone manufactures clone.Clone.MaxTotal instance resources from the
// clone's single child template and places them in two passes (spec.md
// §4.2 "Clones and bundles").
func assignClone(ws *cluster.WorkingSet, c *cluster.Resource, log hclog.Logger) error {
	if len(c.Children) == 0 {
		c.Provisional = false
		return nil
	}
	template := ws.Resources[c.Children[0]]
	instances := manufactureInstances(ws, c, template)

	available := set.New[string](len(ws.Nodes))
	for id, n := range ws.Nodes {
		if n.Eligible() {
			available.Insert(id)
		}
	}
	optimum := c.Clone.MaxPerNode
	if available.Size() > 0 {
		perNode := (c.Clone.MaxTotal + available.Size() - 1) / available.Size()
		if perNode < optimum {
			optimum = perNode
		}
	}
	if optimum < 1 {
		optimum = 1
	}

	// Excess instances (more already running than MaxTotal allows, after a
	// clone-max shrink) are banned outright rather than competing for a
	// slot (spec.md §4.2 "ban the remainder with -INFINITY").
	for i := c.Clone.MaxTotal; i < len(instances); i++ {
		recordAssignment(ws, instances[i], map[string]cluster.Score{}, "", log)
	}

	// Preferred pass: keep a healthy running instance on its current node
	// if the per-node optimum hasn't been exceeded there yet.
	for _, inst := range instances {
		if !inst.Provisional || !inst.Running() || inst.Failed {
			continue
		}
		current := inst.CurrentNode()
		node, ok := ws.Nodes[current]
		if !ok || !node.Eligible() || node.Count >= optimum {
			continue
		}
		candidates, err := candidateScores(ws, inst.ID, c.ID)
		if err != nil {
			return err
		}
		if candidates[current].Banned() {
			continue
		}
		recordAssignment(ws, inst, map[string]cluster.Score{current: candidates[current]}, current, log)
	}

	// Free pass: everything still provisional, capped at MaxPerNode per
	// node (spec.md §8-P2).
	for _, inst := range instances {
		if !inst.Provisional {
			continue
		}
		candidates, err := candidateScores(ws, inst.ID, c.ID)
		if err != nil {
			return err
		}
		applyTicket(ws, inst, candidates)
		current := inst.CurrentNode()
		if current != "" && inst.Running() {
			if s, ok := candidates[current]; ok {
				candidates[current] = s.Add(inst.Meta.Stickiness)
			}
		}
		for id, n := range ws.Nodes {
			if n.Count >= c.Clone.MaxPerNode {
				candidates[id] = cluster.MinusInfinity
			}
		}
		recordAssignment(ws, inst, candidates, current, log)
	}

	if c.Clone.Promotable {
		rankPromotions(ws, c, instances)
	}

	c.Provisional = false
	return nil
}

// manufactureInstances creates (or reuses, on a re-run within the same
// WorkingSet) the clone's instance resources: one per slot up to MaxTotal,
// plus one extra per already-running instance beyond MaxTotal so the
// excess can be explicitly stopped instead of silently vanishing (spec.md
// §4.2 "If the instance count exceeds max_total, ban the remainder").
func manufactureInstances(ws *cluster.WorkingSet, c, template *cluster.Resource) []*cluster.Resource {
	slots := c.Clone.MaxTotal
	if slots < 1 {
		slots = 1
	}
	runningNodes := append([]string(nil), template.Primitive.RunningOn...)
	if len(runningNodes) > slots {
		slots = len(runningNodes)
	}

	instances := make([]*cluster.Resource, 0, slots)
	c.Children = c.Children[:1] // keep template as children[0]'s source; rebuild instance list
	instanceIDs := make([]string, 0, slots)
	for i := 0; i < slots; i++ {
		id := fmt.Sprintf("%s:%d", template.ID, i)
		inst, ok := ws.Resources[id]
		if !ok {
			inst = cluster.NewPrimitive(id)
			inst.Parent = c.ID
			inst.Primitive.Class = template.Primitive.Class
			inst.Primitive.Provider = template.Primitive.Provider
			inst.Primitive.Type = template.Primitive.Type
			inst.Meta = template.Meta
			if i < len(runningNodes) {
				inst.Primitive.RunningOn = []string{runningNodes[i]}
				inst.Primitive.Role = template.Primitive.Role
			}
			ws.Resources[id] = inst
		}
		instances = append(instances, inst)
		instanceIDs = append(instanceIDs, id)
	}
	c.Children = append([]string{template.ID}, instanceIDs...)
	return instances
}

// rankPromotions picks the top PromotedMax placed instances to carry
// NextRole = Promoted, ranked by currently-promoted role first and then by
// final node score, with node ID as the last, fully deterministic
// tie-break (spec.md §4.2 "Promotable clones").
func rankPromotions(ws *cluster.WorkingSet, c *cluster.Resource, instances []*cluster.Resource) {
	placed := make([]*cluster.Resource, 0, len(instances))
	for _, inst := range instances {
		if inst.NextNode != "" {
			placed = append(placed, inst)
		}
	}

	less := func(i, j int) bool {
		a, b := placed[i], placed[j]
		aPromoted := a.Primitive.Role == cluster.RolePromoted
		bPromoted := b.Primitive.Role == cluster.RolePromoted
		if aPromoted != bPromoted {
			return aPromoted // promoted sorts first
		}
		sa, sb := ws.Nodes[a.NextNode].ScoreFor(a.ID), ws.Nodes[b.NextNode].ScoreFor(b.ID)
		if sa != sb {
			return sb.Less(sa) // higher score first
		}
		return a.NextNode < b.NextNode
	}
	insertionSort(placed, less)

	max := c.Clone.PromotedMax
	for i, inst := range placed {
		if i < max {
			inst.Primitive.NextRole = cluster.RolePromoted
		} else {
			inst.Primitive.NextRole = cluster.RoleUnpromoted
		}
	}
}

// insertionSort keeps rankPromotions's ordering obviously stable and
// deterministic without pulling in sort.Slice's interface-based comparator
// indirection for what's always a small list (clone-max is tens, not
// thousands).
func insertionSort(items []*cluster.Resource, less func(i, j int) bool) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
