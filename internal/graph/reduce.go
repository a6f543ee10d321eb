// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package graph

// Reduce performs a transitive reduction on g's input edges (spec.md §4.5):
// an input edge u -> s is dropped if s can still reach u through one of
// its other inputs. The graph is acyclic by construction (it's built from
// a DAG of synapses), so this is a plain reduction, not full cycle
// handling.
func Reduce(g *Graph) {
	reach := make(map[uint64]map[uint64]bool, len(g.Synapses))
	var reachableFrom func(id uint64) map[uint64]bool
	reachableFrom = func(id uint64) map[uint64]bool {
		if r, ok := reach[id]; ok {
			return r
		}
		r := make(map[uint64]bool)
		reach[id] = r // guard against accidental recursion; DAG so none expected
		s := g.ByID(id)
		if s == nil {
			return r
		}
		for _, in := range s.Inputs {
			r[in] = true
			for k := range reachableFrom(in) {
				r[k] = true
			}
		}
		return r
	}

	for _, s := range g.Synapses {
		if len(s.Inputs) < 2 {
			continue
		}
		keep := make([]uint64, 0, len(s.Inputs))
		for _, candidate := range s.Inputs {
			redundant := false
			for _, other := range s.Inputs {
				if other == candidate {
					continue
				}
				if reachableFrom(other)[candidate] {
					redundant = true
					break
				}
			}
			if !redundant {
				keep = append(keep, candidate)
			}
		}
		s.Inputs = dedupe(keep)
	}
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
