// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cib

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/tahliar/pacemaker/internal/cluster"
)

// MembershipNode is the live-membership half of Ingest's input: what the
// membership watcher (internal/membership) currently believes about a node,
// independent of what the CIB's static <nodes> section says.
type MembershipNode struct {
	ID      string
	Online  bool
	State   cluster.MembershipState
}

// Ingest builds a cluster.WorkingSet from a CIB XML document and a live
// membership list (SPEC_FULL.md §4.1). Every invariant spec.md §4.1 names
// is checked here: running_on nodes must exist in membership; colocations
// and orderings must reference known resources; unresolvable orderings are
// allowed (late-bound) and are resolved during action synthesis instead.
func Ingest(doc []byte, members []MembershipNode, now int64) (*cluster.WorkingSet, error) {
	var parsed xmlDoc
	if err := xml.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("cib: malformed document: %w", err)
	}

	errs := newSchemaError()
	ws := cluster.NewWorkingSet(now)

	memberIdx := make(map[string]MembershipNode, len(members))
	for _, m := range members {
		memberIdx[m.ID] = m
	}

	for _, n := range parsed.Configuration.Nodes.Node {
		node := cluster.NewNode(n.ID, n.Uname)
		if mn, ok := memberIdx[n.ID]; ok {
			node.Online = mn.Online
			node.Membership = mn.State
		} else {
			node.Membership = cluster.MemberLost
		}
		switch n.Type {
		case "remote":
			node.Role = cluster.RoleRemote
		case "guest":
			node.Role = cluster.RoleGuest
		default:
			node.Role = cluster.RoleCluster
		}
		ws.Nodes[node.ID] = node
	}

	for _, p := range parsed.Configuration.Resources.Primitive {
		ws.AddResource(decodePrimitive(p))
	}
	for _, g := range parsed.Configuration.Resources.Group {
		children := make([]string, 0, len(g.Primitive))
		for _, p := range g.Primitive {
			pr := decodePrimitive(p)
			pr.Parent = g.ID
			ws.AddResource(pr)
			children = append(children, pr.ID)
		}
		grp := cluster.NewGroup(g.ID, children)
		applyMeta(&grp.Meta, g.Meta)
		ws.AddResource(grp)
	}
	for _, c := range parsed.Configuration.Resources.Clone {
		ws.AddResource(decodeCloneLike(ws, c, false, errs))
	}
	for _, b := range parsed.Configuration.Resources.Bundle {
		ws.AddResource(decodeCloneLike(ws, b, true, errs))
	}

	for _, c := range parsed.Configuration.Constraints.Colocation {
		if _, ok := ws.Resources[c.Rsc]; !ok {
			errs.add("colocation %s references unknown resource %q", c.ID, c.Rsc)
			continue
		}
		if _, ok := ws.Resources[c.WithRsc]; !ok {
			errs.add("colocation %s references unknown resource %q", c.ID, c.WithRsc)
			continue
		}
		score, err := parseScore(c.Score)
		if err != nil {
			errs.add("colocation %s: %v", c.ID, err)
			continue
		}
		ws.AddColocation(&cluster.Colocation{
			ID:          c.ID,
			Dependent:   c.Rsc,
			Primary:     c.WithRsc,
			Score:       score,
			RoleDep:     parseRole(c.RscRole),
			RolePrimary: parseRole(c.WithRscRole),
			Influence:   c.Influence == "true",
		})
	}

	for _, o := range parsed.Configuration.Constraints.Order {
		ws.Orderings = append(ws.Orderings, &cluster.Ordering{
			ID:    o.ID,
			First: cluster.ActionKey{Resource: o.First, Task: parseTask(o.FirstAction)},
			Then:  cluster.ActionKey{Resource: o.Then, Task: parseTask(o.ThenAction)},
			Type:  parseOrderKind(o.Kind),
		})
	}

	for _, l := range parsed.Configuration.Constraints.Location {
		loc := &cluster.Location{ID: l.ID, Resource: l.Rsc, Node: l.Node}
		if l.Rule != nil {
			loc.Rule = ruleToExpr(*l.Rule)
			score, err := parseScore(l.Rule.Score)
			if err != nil {
				errs.add("location %s rule: %v", l.ID, err)
				continue
			}
			loc.Score = score
		} else {
			score, err := parseScore(l.Score)
			if err != nil {
				errs.add("location %s: %v", l.ID, err)
				continue
			}
			loc.Score = score
		}
		ws.Locations = append(ws.Locations, loc)
	}

	for _, t := range parsed.Configuration.Constraints.Ticket {
		if r, ok := ws.Resources[t.Rsc]; ok {
			r.Meta.TicketDep = t.Ticket
			r.Meta.TicketLoss = t.LossPolicy
		} else {
			errs.add("ticket dependency %s references unknown resource %q", t.ID, t.Rsc)
		}
		if _, ok := ws.Tickets[t.Ticket]; !ok {
			ws.Tickets[t.Ticket] = &cluster.Ticket{ID: t.Ticket}
		}
	}

	for _, lvl := range parsed.Configuration.Constraints.Fencing.Level {
		ws.Fencing = append(ws.Fencing, &cluster.FencingLevel{
			Target:  lvl.Target,
			Index:   lvl.Index,
			Devices: strings.Split(lvl.Devices, ","),
		})
	}

	for _, ns := range parsed.Status.NodeState {
		if _, ok := memberIdx[ns.ID]; !ok {
			errs.add("status node_state %q has no corresponding membership entry", ns.ID)
			continue
		}
		for _, lr := range ns.LRM.Resources.Resource {
			r, ok := ws.Resources[lr.ID]
			if !ok {
				errs.add("status references unknown resource %q", lr.ID)
				continue
			}
			applyOpHistory(r, ns.ID, lr.Op)
		}
	}

	return ws, errs.orNil()
}

func decodePrimitive(p xmlPrimitive) *cluster.Resource {
	r := cluster.NewPrimitive(p.ID)
	r.Primitive.Class = p.Class
	r.Primitive.Provider = p.Provider
	r.Primitive.Type = p.Type
	applyMeta(&r.Meta, p.Meta)
	return r
}

func decodeCloneLike(ws *cluster.WorkingSet, c xmlClone, bundle bool, errs *SchemaError) *cluster.Resource {
	clone := cluster.CloneData{MaxTotal: 1, MaxPerNode: 1}
	if v, ok := c.Meta.get("clone-max"); ok {
		clone.MaxTotal = atoiDefault(v, 1)
	}
	if v, ok := c.Meta.get("clone-node-max"); ok {
		clone.MaxPerNode = atoiDefault(v, 1)
	}
	if v, ok := c.Meta.get("promotable"); ok {
		clone.Promotable = v == "true"
	}
	if v, ok := c.Meta.get("promoted-max"); ok {
		clone.PromotedMax = atoiDefault(v, 1)
	}
	if v, ok := c.Meta.get("interleave"); ok {
		clone.Interleave = v == "true"
	}

	res := cluster.NewClone(c.ID, bundle, clone)
	applyMeta(&res.Meta, c.Meta)

	for _, p := range c.Primitive {
		pr := decodePrimitive(p)
		pr.Parent = c.ID
		ws.AddResource(pr)
		res.Children = append(res.Children, pr.ID)
		// The template primitive is registered but never itself scheduled;
		// instance synthesis (internal/scheduler) manufactures N children
		// named "<template id>:<n>" from it at allocation time.
	}
	if len(c.Group) > 0 {
		errs.add("clone/bundle %q: grouped clone children are not supported", c.ID)
	}
	return res
}

func applyMeta(meta *cluster.ResourceMeta, x xmlMetaAttributes) {
	if v, ok := x.get("is-managed"); ok {
		meta.Managed = v != "false"
	} else {
		meta.Managed = true
	}
	if v, ok := x.get("resource-stickiness"); ok {
		if s, err := parseScore(v); err == nil {
			meta.Stickiness = s
		}
	}
	if v, ok := x.get("notify"); ok {
		meta.Notify = v == "true"
	}
	if v, ok := x.get("on-fail"); ok {
		meta.OnFail = v
	} else {
		meta.OnFail = "restart"
	}
}

func applyOpHistory(r *cluster.Resource, nodeID string, ops []xmlLRMRscOp) {
	if r.Primitive == nil {
		return
	}
	running := false
	role := cluster.RoleStopped
	for _, op := range ops {
		switch strings.ToLower(op.Operation) {
		case "start":
			if op.RCCode == 0 {
				running = true
				role = cluster.RoleStarted
			}
		case "stop":
			if op.RCCode == 0 {
				running = false
				role = cluster.RoleStopped
			}
		case "promote":
			if op.RCCode == 0 {
				role = cluster.RolePromoted
			}
		case "demote":
			if op.RCCode == 0 {
				role = cluster.RoleUnpromoted
			}
		case "monitor":
			if op.RCCode == 0 && op.Interval > 0 {
				running = true
			}
		}
	}
	if running {
		r.Primitive.RunningOn = append(r.Primitive.RunningOn, nodeID)
		r.Primitive.Role = role
	}
}

func parseScore(s string) (cluster.Score, error) {
	switch s {
	case "", "0":
		return cluster.Zero, nil
	case "INFINITY":
		return cluster.Infinity, nil
	case "-INFINITY":
		return cluster.MinusInfinity, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", s, err)
	}
	return cluster.Score(n), nil
}

func parseRole(s string) cluster.Role {
	switch s {
	case "Started":
		return cluster.RoleStarted
	case "Unpromoted", "Slave":
		return cluster.RoleUnpromoted
	case "Promoted", "Master":
		return cluster.RolePromoted
	default:
		return cluster.RoleUnknown
	}
}

func parseTask(s string) cluster.Task {
	switch strings.ToLower(s) {
	case "stop":
		return cluster.TaskStop
	case "promote":
		return cluster.TaskPromote
	case "demote":
		return cluster.TaskDemote
	case "monitor":
		return cluster.TaskMonitor
	default:
		return cluster.TaskStart
	}
}

func parseOrderKind(kind string) cluster.OrderType {
	switch kind {
	case "Optional":
		return cluster.OrderOptional
	case "Serialize":
		return cluster.OrderSerialize | cluster.OrderImpliesThen
	default: // Mandatory
		return cluster.OrderImpliesThen | cluster.OrderRunnableLeft
	}
}

// ruleToExpr lowers a <rule> CIB expression list into a go-bexpr selector
// expression matching the bexpr struct tags scheduler.NodeAttrs exposes:
// "#uname"/"#role" address the node's identity fields directly, anything
// else addresses its free-form attribute map.
func ruleToExpr(r xmlRule) string {
	parts := make([]string, 0, len(r.Expression))
	for _, e := range r.Expression {
		op := "=="
		switch e.Operation {
		case "ne":
			op = "!="
		case "eq":
			op = "=="
		}
		selector := "Attributes." + e.Attribute
		switch e.Attribute {
		case "#uname":
			selector = "Uname"
		case "#role":
			selector = "Role"
		}
		parts = append(parts, fmt.Sprintf("%s %s %q", selector, op, e.Value))
	}
	return strings.Join(parts, " and ")
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
