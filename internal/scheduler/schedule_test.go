// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"testing"

	"github.com/shoenig/test/must"
	"github.com/tahliar/pacemaker/internal/cluster"
	"github.com/tahliar/pacemaker/internal/graph"
)

func TestSchedule_EmitsOnlyRunnableActions(t *testing.T) {
	ws := twoNodeSet()
	r := cluster.NewPrimitive("rsc1")
	ws.AddResource(r)

	g, err := Schedule(ws, 1, testLogger())
	must.NoError(t, err)
	must.NotNil(t, g)
	must.Eq(t, 1, g.TransitionID)

	for _, s := range g.Synapses {
		must.Eq(t, cluster.VariantPrimitive, ws.Resources[s.Action.Resource].Variant)
	}
	must.Len(t, 2, g.Synapses) // start + monitor
}

func TestSchedule_GroupProducesReducedGraph(t *testing.T) {
	ws := twoNodeSet()
	c1 := cluster.NewPrimitive("c1")
	c2 := cluster.NewPrimitive("c2")
	c1.Parent, c2.Parent = "grp", "grp"
	ws.AddResource(c1)
	ws.AddResource(c2)
	grp := cluster.NewGroup("grp", []string{"c1", "c2"})
	ws.AddResource(grp)

	g, err := Schedule(ws, 2, testLogger())
	must.NoError(t, err)

	var c2Start *graph.Synapse
	for _, s := range g.Synapses {
		if s.Action.Resource == "c2" && s.Action.Task == "start" {
			c2Start = s
		}
	}
	must.NotNil(t, c2Start)
	// c2's start depends (transitively) on c1's start and the group's
	// start_0 hub; the reduced graph should keep exactly the immediate one.
	must.Eq(t, 1, len(c2Start.Inputs))
}

func TestSchedule_FailedFenceResourceEmitsCrmEventSynapse(t *testing.T) {
	ws := cluster.NewWorkingSet(0)
	n := eligibleNode("n1")
	n.Online = false
	ws.Nodes["n1"] = n
	ws.Fencing = append(ws.Fencing, &cluster.FencingLevel{Target: "n1", Index: 1, Devices: []string{"ipmi-n1"}})

	r := cluster.NewPrimitive("rsc1")
	r.Primitive.RunningOn = []string{"n1"}
	r.Primitive.Role = cluster.RoleStarted
	r.Failed = true
	r.Meta.OnFail = "fence"
	ws.AddResource(r)

	g, err := Schedule(ws, 4, testLogger())
	must.NoError(t, err)

	var fence *graph.Synapse
	for _, s := range g.Synapses {
		if s.Action.Kind == graph.KindCrmEvent {
			fence = s
		}
	}
	must.NotNil(t, fence)
	must.Eq(t, "fence", fence.Action.Task)
	must.Eq(t, "n1", fence.Action.Node)
}

func TestSchedule_NoopWhenNothingToDo(t *testing.T) {
	ws := twoNodeSet()
	r := cluster.NewPrimitive("rsc1")
	r.Primitive.RunningOn = []string{"n1"}
	r.Primitive.Role = cluster.RoleStarted
	ws.AddResource(r)

	g, err := Schedule(ws, 3, testLogger())
	must.NoError(t, err)
	must.Len(t, 0, g.Synapses)
}
