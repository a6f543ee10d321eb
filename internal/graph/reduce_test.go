// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"testing"

	"github.com/shoenig/test/must"
)

// a -> b -> c, and a direct a -> c edge that's implied by the chain and
// should be dropped by Reduce.
func TestReduce_DropsImpliedEdge(t *testing.T) {
	g := New(1)
	g.AddSynapse(&Synapse{ID: 1})
	g.AddSynapse(&Synapse{ID: 2, Inputs: []uint64{1}})
	g.AddSynapse(&Synapse{ID: 3, Inputs: []uint64{1, 2}})

	Reduce(g)

	must.Eq(t, []uint64{2}, g.ByID(3).Inputs)
}

func TestReduce_KeepsIndependentInputs(t *testing.T) {
	g := New(1)
	g.AddSynapse(&Synapse{ID: 1})
	g.AddSynapse(&Synapse{ID: 2})
	g.AddSynapse(&Synapse{ID: 3, Inputs: []uint64{1, 2}})

	Reduce(g)

	must.Len(t, 2, g.ByID(3).Inputs)
}
