// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cluster

import (
	"testing"

	"github.com/shoenig/test/must"
	"github.com/stretchr/testify/assert"
)

func TestWorkingSet_ColocationIndex(t *testing.T) {
	ws := NewWorkingSet(0)
	ws.AddResource(NewPrimitive("dep"))
	ws.AddResource(NewPrimitive("primary"))
	col := &Colocation{ID: "c1", Dependent: "dep", Primary: "primary", Score: Infinity}
	ws.AddColocation(col)

	must.Len(t, 1, ws.ColocationsAsDependent("dep"))
	must.Len(t, 1, ws.ColocationsAsPrimary("primary"))
	must.Len(t, 0, ws.ColocationsAsDependent("primary"))
}

func TestWorkingSet_ColocationIndex_AsPrimaryHoldsEveryDependent(t *testing.T) {
	ws := NewWorkingSet(0)
	ws.AddResource(NewPrimitive("primary"))
	ws.AddResource(NewPrimitive("dep1"))
	ws.AddResource(NewPrimitive("dep2"))
	ws.AddColocation(&Colocation{ID: "c1", Dependent: "dep1", Primary: "primary", Score: Infinity})
	ws.AddColocation(&Colocation{ID: "c2", Dependent: "dep2", Primary: "primary", Score: 100})

	var ids []string
	for _, col := range ws.ColocationsAsPrimary("primary") {
		ids = append(ids, col.ID)
	}
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)
}

func TestWorkingSet_SortedNodeIDs(t *testing.T) {
	ws := NewWorkingSet(0)
	ws.Nodes["b"] = NewNode("b", "b")
	ws.Nodes["a"] = NewNode("a", "a")
	ws.Nodes["c"] = NewNode("c", "c")

	must.Eq(t, []string{"a", "b", "c"}, ws.SortedNodeIDs())
}

func TestWorkingSet_ActionResolution(t *testing.T) {
	ws := NewWorkingSet(0)
	a := ws.NewAction("rsc1", TaskStart, "node1")

	found, ok := ws.ResolveAction(ActionKey{Resource: "rsc1", Task: TaskStart, Node: "node1"})
	must.True(t, ok)
	must.Eq(t, a.ID, found.ID)

	_, ok = ws.ResolveAction(ActionKey{Resource: "rsc1", Task: TaskStop, Node: "node1"})
	must.False(t, ok)
}
