// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import "github.com/tahliar/pacemaker/internal/cluster"

// candidateScores computes the starting allowed-node score map for
// resourceID: every online node gets Zero unless a location constraint (or
// rule) adjusts it, and offline/non-member nodes are banned outright
// (spec.md §4.2 step 1, "Prune allowed-node map").
//
// locationResource lets clone instances reuse their clone's location
// constraints (ws.Locations is keyed by the clone's own ID, not each
// synthesized instance ID).
func candidateScores(ws *cluster.WorkingSet, resourceID, locationResource string) (map[string]cluster.Score, error) {
	out := make(map[string]cluster.Score, len(ws.Nodes))
	for id, n := range ws.Nodes {
		if !n.Eligible() {
			out[id] = cluster.MinusInfinity
			continue
		}
		out[id] = cluster.Zero
	}

	for _, loc := range ws.Locations {
		if loc.Resource != locationResource {
			continue
		}
		if loc.Node != "" {
			if _, ok := out[loc.Node]; ok {
				out[loc.Node] = out[loc.Node].Add(loc.Score)
			}
			continue
		}
		for id, n := range ws.Nodes {
			if !n.Eligible() {
				continue
			}
			match, err := evalRule(loc.Rule, n)
			if err != nil {
				return nil, err
			}
			if match {
				out[id] = out[id].Add(loc.Score)
			}
		}
	}

	return out, nil
}

// applyTicket folds a resource's ticket dependency into an already-computed
// candidate map: an ungranted ticket bans every node unless the loss policy
// is "freeze", in which case only the resource's current node (if any)
// stays eligible (SPEC_FULL.md §3 "Ticket").
func applyTicket(ws *cluster.WorkingSet, r *cluster.Resource, candidates map[string]cluster.Score) {
	if r.Meta.TicketDep == "" {
		return
	}
	t, ok := ws.Tickets[r.Meta.TicketDep]
	if ok && t.Granted {
		return
	}
	if r.Meta.TicketLoss == "freeze" {
		current := r.CurrentNode()
		for id := range candidates {
			if id != current {
				candidates[id] = cluster.MinusInfinity
			}
		}
		return
	}
	for id := range candidates {
		candidates[id] = cluster.MinusInfinity
	}
}

// chooseNode picks the winning node from a candidate map using the
// deterministic tie-break spec.md §4.2 step 4 and §8-P1 require: highest
// score; ties go to the resource's current node if it's among the tied
// leaders; otherwise lexicographic node ID.
func chooseNode(ws *cluster.WorkingSet, candidates map[string]cluster.Score, current string) (string, bool) {
	best := cluster.MinusInfinity
	for _, s := range candidates {
		if s.Banned() {
			continue
		}
		if best.Less(s) {
			best = s
		}
	}
	if best.Banned() {
		return "", false
	}

	var tied []string
	for _, id := range ws.SortedNodeIDs() {
		s, ok := candidates[id]
		if !ok || s.Banned() {
			continue
		}
		if s == best {
			tied = append(tied, id)
		}
	}
	if len(tied) == 0 {
		return "", false
	}
	for _, id := range tied {
		if id == current {
			return id, true
		}
	}
	return tied[0], true // tied is already lexicographically sorted
}
