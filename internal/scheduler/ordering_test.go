// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"strconv"
	"testing"

	"github.com/shoenig/test/must"
	"github.com/tahliar/pacemaker/internal/cluster"
)

func TestPropagateOrdering_MandatoryMakesThenRunnable(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	first := ws.NewAction("a", cluster.TaskStart, "n1")
	first.Flags = cluster.FlagRunnable
	then := ws.NewAction("b", cluster.TaskStart, "n1")
	then.Flags = cluster.FlagOptional

	ws.Orderings = append(ws.Orderings, &cluster.Ordering{
		ID:    "o1",
		First: cluster.ActionKey{Resource: "a", Task: cluster.TaskStart, Node: "n1"},
		Then:  cluster.ActionKey{Resource: "b", Task: cluster.TaskStart, Node: "n1"},
		Type:  cluster.OrderImpliesThen,
	})

	PropagateOrdering(ws)
	must.True(t, then.Runnable())
	must.False(t, then.Optional())
}

func TestPropagateOrdering_RunnableLeftClearsThen(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	first := ws.NewAction("a", cluster.TaskStop, "n1") // not runnable: no FlagRunnable set
	then := ws.NewAction("b", cluster.TaskStop, "n1")
	then.Flags = cluster.FlagRunnable

	ws.Orderings = append(ws.Orderings, &cluster.Ordering{
		ID:    "o1",
		First: cluster.ActionKey{Resource: "a", Task: cluster.TaskStop, Node: "n1"},
		Then:  cluster.ActionKey{Resource: "b", Task: cluster.TaskStop, Node: "n1"},
		Type:  cluster.OrderRunnableLeft,
	})

	PropagateOrdering(ws)
	must.False(t, first.Runnable())
	must.False(t, then.Runnable())
}

func TestPropagateOrdering_UnresolvedOrderingIsSkipped(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	ws.Orderings = append(ws.Orderings, &cluster.Ordering{
		ID:    "o1",
		First: cluster.ActionKey{Resource: "ghost", Task: cluster.TaskStart},
		Then:  cluster.ActionKey{Resource: "also-ghost", Task: cluster.TaskStart},
		Type:  cluster.OrderImpliesThen,
	})

	PropagateOrdering(ws) // must not panic on an unresolvable late-bound edge
	must.Len(t, 0, ws.Actions)
}

// newAssignedClone builds a clone resource whose instances are already
// placed on the given nodes (one instance per node, in order), bypassing
// AssignAll entirely so these tests exercise Interleave/applyInterleaving in
// isolation instead of the allocator's node-count bookkeeping.
func newAssignedClone(ws *cluster.WorkingSet, id string, interleave bool, nodes []string) *cluster.Resource {
	tmpl := cluster.NewPrimitive(id + ":template")
	tmpl.Parent = id
	ws.AddResource(tmpl)

	c := cluster.NewClone(id, false, cluster.CloneData{MaxTotal: len(nodes), MaxPerNode: 1, Interleave: interleave})
	children := []string{tmpl.ID}
	for i, node := range nodes {
		instID := tmpl.ID + ":" + strconv.Itoa(i)
		inst := cluster.NewPrimitive(instID)
		inst.Parent = id
		inst.NextNode = node
		inst.Primitive.NextRole = cluster.RoleStarted
		inst.Provisional = false
		ws.Resources[instID] = inst
		children = append(children, instID)
	}
	c.Children = children
	ws.AddResource(c)
	return c
}

func TestInterleave_PairsInstancesOnSameNode(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	first := newAssignedClone(ws, "first", false, []string{"n1", "n2"})
	then := newAssignedClone(ws, "then", true, []string{"n1", "n2"})

	edges := Interleave(ws, first, then, cluster.OrderImpliesThen)
	must.Len(t, 2, edges)
	for _, e := range edges {
		firstInst := ws.Resources[e.First.Resource]
		thenInst := ws.Resources[e.Then.Resource]
		must.NotNil(t, firstInst)
		must.NotNil(t, thenInst)
		must.Eq(t, firstInst.NextNode, thenInst.NextNode)
	}
}

func TestInterleave_UnmatchedThenInstanceForcedUnassigned(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	// first only ever runs on one node; then wants two instances, so one
	// then instance has no compatible first instance on its node.
	first := newAssignedClone(ws, "first", false, []string{"n1"})
	then := newAssignedClone(ws, "then", true, []string{"n1", "n2"})

	Interleave(ws, first, then, cluster.OrderImpliesThen)

	unassigned := 0
	for _, id := range then.Children[1:] {
		if ws.Resources[id].NextNode == "" {
			unassigned++
		}
	}
	must.Eq(t, 1, unassigned)
}

func TestInterleave_NotInterleavedReturnsNil(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	first := newAssignedClone(ws, "first", false, []string{"n1"})
	then := newAssignedClone(ws, "then", false, []string{"n1"})

	must.Len(t, 0, Interleave(ws, first, then, cluster.OrderImpliesThen))
}

func TestApplyInterleaving_ReplacesCoarseEdgeWithPerInstanceEdges(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	first := newAssignedClone(ws, "first", false, []string{"n1", "n2"})
	then := newAssignedClone(ws, "then", true, []string{"n1", "n2"})

	ws.Orderings = append(ws.Orderings, &cluster.Ordering{
		ID:    "coarse",
		First: cluster.ActionKey{Resource: first.ID, Task: cluster.TaskStart},
		Then:  cluster.ActionKey{Resource: then.ID, Task: cluster.TaskStart},
		Type:  cluster.OrderImpliesThen,
	})

	applyInterleaving(ws)

	must.Len(t, 2, ws.Orderings)
	for _, o := range ws.Orderings {
		must.NotEq(t, "coarse", o.ID)
	}
}

func TestApplyInterleaving_LeavesNonCloneEdgesUntouched(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	ws.AddResource(cluster.NewPrimitive("a"))
	ws.AddResource(cluster.NewPrimitive("b"))
	ws.Orderings = append(ws.Orderings, &cluster.Ordering{
		ID:    "o1",
		First: cluster.ActionKey{Resource: "a", Task: cluster.TaskStart},
		Then:  cluster.ActionKey{Resource: "b", Task: cluster.TaskStart},
		Type:  cluster.OrderImpliesThen,
	})

	applyInterleaving(ws)

	must.Len(t, 1, ws.Orderings)
	must.Eq(t, "o1", ws.Orderings[0].ID)
}

func TestPropagateOrdering_ChainPropagatesTransitively(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	a := ws.NewAction("a", cluster.TaskStart, "n1")
	a.Flags = cluster.FlagRunnable
	b := ws.NewAction("b", cluster.TaskStart, "n1")
	b.Flags = cluster.FlagOptional
	c := ws.NewAction("c", cluster.TaskStart, "n1")
	c.Flags = cluster.FlagOptional

	ws.Orderings = append(ws.Orderings,
		&cluster.Ordering{
			ID: "o1", Type: cluster.OrderImpliesThen,
			First: cluster.ActionKey{Resource: "a", Task: cluster.TaskStart, Node: "n1"},
			Then:  cluster.ActionKey{Resource: "b", Task: cluster.TaskStart, Node: "n1"},
		},
		&cluster.Ordering{
			ID: "o2", Type: cluster.OrderImpliesThen,
			First: cluster.ActionKey{Resource: "b", Task: cluster.TaskStart, Node: "n1"},
			Then:  cluster.ActionKey{Resource: "c", Task: cluster.TaskStart, Node: "n1"},
		},
	)

	PropagateOrdering(ws)
	must.True(t, b.Runnable())
	must.True(t, c.Runnable())
}
