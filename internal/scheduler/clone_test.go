// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"strconv"
	"testing"

	"github.com/shoenig/test/must"
	"github.com/tahliar/pacemaker/internal/cluster"
)

func threeNodeSet() *cluster.WorkingSet {
	ws := cluster.NewWorkingSet(0)
	ws.Nodes["n1"] = eligibleNode("n1")
	ws.Nodes["n2"] = eligibleNode("n2")
	ws.Nodes["n3"] = eligibleNode("n3")
	return ws
}

func newCloneWithTemplate(ws *cluster.WorkingSet, id string, data cluster.CloneData) *cluster.Resource {
	tmpl := cluster.NewPrimitive(id + ":template")
	tmpl.Parent = id
	ws.AddResource(tmpl)
	c := cluster.NewClone(id, false, data)
	c.Children = []string{tmpl.ID}
	ws.AddResource(c)
	return c
}

func TestAssignClone_OneInstancePerEligibleNode(t *testing.T) {
	ws := threeNodeSet()
	c := newCloneWithTemplate(ws, "cl", cluster.CloneData{MaxTotal: 3, MaxPerNode: 1})

	must.NoError(t, AssignAll(ws, testLogger()))

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		inst := ws.Resources["cl:template:"+strconv.Itoa(i)]
		must.NotNil(t, inst)
		must.NotEq(t, "", inst.NextNode)
		must.False(t, seen[inst.NextNode])
		seen[inst.NextNode] = true
	}
}

func TestAssignClone_ExcessInstancesBanned(t *testing.T) {
	ws := twoNodeSet()
	tmpl := cluster.NewPrimitive("cl:template")
	tmpl.Parent = "cl"
	tmpl.Primitive.RunningOn = []string{"n1", "n2"} // forces 2 manufactured slots
	ws.AddResource(tmpl)
	c := cluster.NewClone("cl", false, cluster.CloneData{MaxTotal: 1, MaxPerNode: 1})
	c.Children = []string{tmpl.ID}
	ws.AddResource(c)

	// Simulate two already-running instances before a clone-max shrink to 1.
	inst0 := cluster.NewPrimitive("cl:template:0")
	inst0.Parent = "cl"
	inst0.Primitive.RunningOn = []string{"n1"}
	inst0.Primitive.Role = cluster.RoleStarted
	ws.Resources[inst0.ID] = inst0
	inst1 := cluster.NewPrimitive("cl:template:1")
	inst1.Parent = "cl"
	inst1.Primitive.RunningOn = []string{"n2"}
	inst1.Primitive.Role = cluster.RoleStarted
	ws.Resources[inst1.ID] = inst1

	must.NoError(t, AssignAll(ws, testLogger()))
	must.Eq(t, "", inst1.NextNode)
}

func TestAssignClone_PromotableRanksTopInstances(t *testing.T) {
	ws := twoNodeSet()
	c := newCloneWithTemplate(ws, "cl", cluster.CloneData{
		MaxTotal: 2, MaxPerNode: 1, Promotable: true, PromotedMax: 1,
	})

	must.NoError(t, AssignAll(ws, testLogger()))

	promoted := 0
	for _, id := range []string{"cl:template:0", "cl:template:1"} {
		inst := ws.Resources[id]
		must.NotNil(t, inst)
		if inst.Primitive.NextRole == cluster.RolePromoted {
			promoted++
		}
	}
	must.Eq(t, 1, promoted)
}
