// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"testing"
	"time"

	"github.com/shoenig/test/must"
	"github.com/tahliar/pacemaker/internal/graph"
)

func chainGraph() *graph.Graph {
	g := graph.New(1)
	g.AddSynapse(&graph.Synapse{ID: 1, Priority: 0, Action: graph.ActionSet{ID: 1, Task: "stop"}})
	g.AddSynapse(&graph.Synapse{ID: 2, Priority: 0, Action: graph.ActionSet{ID: 2, Task: "start"}, Inputs: []uint64{1}})
	return g
}

func TestRun_ReadyRespectsInputConfirmation(t *testing.T) {
	g := chainGraph()
	r := NewRun(g)

	ready := r.Ready()
	must.Len(t, 1, ready)
	must.Eq(t, uint64(1), ready[0].ID)

	r.Dispatch(1, time.Now().Add(time.Minute))
	must.Len(t, 0, r.Ready()) // 1 in flight, 2 still blocked

	r.Confirm(1)
	ready = r.Ready()
	must.Len(t, 1, ready)
	must.Eq(t, uint64(2), ready[0].ID)
}

func TestRun_ReadyOrdersByPriorityThenID(t *testing.T) {
	g := graph.New(1)
	g.AddSynapse(&graph.Synapse{ID: 3, Priority: 0, Action: graph.ActionSet{ID: 3}})
	g.AddSynapse(&graph.Synapse{ID: 1, Priority: 1, Action: graph.ActionSet{ID: 1}})
	g.AddSynapse(&graph.Synapse{ID: 2, Priority: 1, Action: graph.ActionSet{ID: 2}})
	r := NewRun(g)

	ready := r.Ready()
	must.Len(t, 3, ready)
	must.Eq(t, uint64(1), ready[0].ID) // priority 1, lowest id
	must.Eq(t, uint64(2), ready[1].ID) // priority 1, next id
	must.Eq(t, uint64(3), ready[2].ID) // priority 0 last
}

func TestRun_TimeoutAbortsAndDiscardsPending(t *testing.T) {
	g := chainGraph()
	r := NewRun(g)
	r.Dispatch(1, time.Now().Add(-time.Second)) // already expired

	expired := r.CheckTimeouts(time.Now())
	must.Len(t, 1, expired)
	must.Eq(t, uint64(1), expired[0])
	must.Eq(t, TimedOut, r.State(1))
	must.True(t, r.Aborted())
	must.Len(t, 0, r.Ready()) // aborted: nothing new dispatches
}

func TestRun_FailAborts(t *testing.T) {
	g := chainGraph()
	r := NewRun(g)
	r.Fail(1)
	must.Eq(t, Failed, r.State(1))
	must.True(t, r.Aborted())
}

func TestRun_DoneAfterAllConfirmed(t *testing.T) {
	g := chainGraph()
	r := NewRun(g)
	must.False(t, r.Done())

	r.Dispatch(1, time.Now().Add(time.Minute))
	r.Confirm(1)
	r.Dispatch(2, time.Now().Add(time.Minute))
	r.Confirm(2)
	must.True(t, r.Done())
}

func TestRun_DoneAfterAbortWithNothingInFlight(t *testing.T) {
	g := chainGraph()
	r := NewRun(g)
	r.Fail(1) // aborts; synapse 2 stays Pending but is discarded by the abort
	must.True(t, r.Done())
}
