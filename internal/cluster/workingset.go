// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cluster

import "sort"

// WorkingSet is the immutable-on-entry, mutated-during-allocation snapshot
// the policy engine runs against. It is built once per scheduler run by
// internal/cib and discarded once the transition graph is emitted (spec.md
// §3 "Lifecycle").
type WorkingSet struct {
	Now int64 // unix seconds, injected so scheduling is reproducible in tests

	Nodes     map[string]*Node
	Resources map[string]*Resource
	// ResourceOrder lists every resource in the order AddResource
	// registered it; allocation priority follows that order for top-level
	// resources (spec.md §4.2 "per top-level resource, in descending
	// priority").
	ResourceOrder []string

	Colocations []*Colocation
	Orderings   []*Ordering
	Locations   []*Location
	Tickets     map[string]*Ticket
	Fencing     []*FencingLevel

	// asPrimary / asDependent index Colocations by each endpoint so the
	// allocator never scans the full list (spec.md §3 "stored on both
	// endpoints for fast traversal").
	asPrimary   map[string][]*Colocation
	asDependent map[string][]*Colocation

	// Actions accumulates every Action synthesized this run, addressable
	// by ID; it is the arena the design notes call for (ResourceId-style
	// stable indices instead of pointers crossing structures).
	Actions   []*Action
	nextID    uint64
	byKey     map[ActionKey]uint64
}

// NewWorkingSet returns an empty WorkingSet ready for ingestion to populate.
func NewWorkingSet(now int64) *WorkingSet {
	return &WorkingSet{
		Now:       now,
		Nodes:     make(map[string]*Node),
		Resources: make(map[string]*Resource),
		Tickets:   make(map[string]*Ticket),
		asPrimary: make(map[string][]*Colocation),
		asDependent: make(map[string][]*Colocation),
		byKey:     make(map[ActionKey]uint64),
	}
}

// AddResource registers a resource and preserves declaration order.
func (ws *WorkingSet) AddResource(r *Resource) {
	ws.Resources[r.ID] = r
	ws.ResourceOrder = append(ws.ResourceOrder, r.ID)
}

// AddColocation registers a colocation and indexes it on both endpoints.
func (ws *WorkingSet) AddColocation(c *Colocation) {
	ws.Colocations = append(ws.Colocations, c)
	ws.asDependent[c.Dependent] = append(ws.asDependent[c.Dependent], c)
	ws.asPrimary[c.Primary] = append(ws.asPrimary[c.Primary], c)
}

// ColocationsAsDependent returns the colocations where resourceID is the
// dependent (the "this with" direction).
func (ws *WorkingSet) ColocationsAsDependent(resourceID string) []*Colocation {
	return ws.asDependent[resourceID]
}

// ColocationsAsPrimary returns the colocations where resourceID is the
// primary (the "with this" direction).
func (ws *WorkingSet) ColocationsAsPrimary(resourceID string) []*Colocation {
	return ws.asPrimary[resourceID]
}

// SortedNodeIDs returns every node ID in lexicographic order, the
// deterministic tie-break spec.md §4.2/§8-P1 requires.
func (ws *WorkingSet) SortedNodeIDs() []string {
	ids := make([]string, 0, len(ws.Nodes))
	for id := range ws.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewAction allocates a fresh Action with the next stable arena index and
// indexes it by (resource, task, node) so late-bound Ordering edges can be
// resolved to it.
func (ws *WorkingSet) NewAction(resource string, task Task, node string) *Action {
	ws.nextID++
	a := &Action{ID: ws.nextID, Resource: resource, Task: task, Node: node}
	ws.Actions = append(ws.Actions, a)
	ws.byKey[ActionKey{Resource: resource, Task: task, Node: node}] = a.ID
	return a
}

// ResolveAction finds a previously synthesized action by key. It also
// tries a node-agnostic match (key.Node == "") for pseudo-events that don't
// target a specific node, matching the late-binding spec.md §4.1 allows.
func (ws *WorkingSet) ResolveAction(key ActionKey) (*Action, bool) {
	if id, ok := ws.byKey[key]; ok {
		return ws.actionByID(id), true
	}
	if key.Node != "" {
		if id, ok := ws.byKey[ActionKey{Resource: key.Resource, Task: key.Task}]; ok {
			return ws.actionByID(id), true
		}
	}
	return nil, false
}

func (ws *WorkingSet) actionByID(id uint64) *Action {
	return ws.ActionByID(id)
}

// ActionByID returns the action with the given arena index, or nil.
// ResolveAction uses it to turn a key lookup back into the concrete action.
func (ws *WorkingSet) ActionByID(id uint64) *Action {
	for _, a := range ws.Actions {
		if a.ID == id {
			return a
		}
	}
	return nil
}
