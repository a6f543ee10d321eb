// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"fmt"

	"github.com/hashicorp/go-bexpr"
	"github.com/tahliar/pacemaker/internal/cluster"
)

// NodeAttrs is the datum type rule-based location constraints are
// evaluated against; its bexpr tags are the selector vocabulary
// internal/cib.ruleToExpr lowers CIB <rule><expression> elements into.
type NodeAttrs struct {
	Uname      string            `bexpr:"Uname"`
	Role       string            `bexpr:"Role"`
	Attributes map[string]string `bexpr:"Attributes"`
}

func attrsFor(n *cluster.Node) NodeAttrs {
	role := "cluster"
	switch n.Role {
	case cluster.RoleRemote:
		role = "remote"
	case cluster.RoleGuest:
		role = "guest"
	case cluster.RoleBundle:
		role = "bundle"
	}
	return NodeAttrs{Uname: n.Name, Role: role, Attributes: n.Attributes}
}

// evalRule reports whether a rule-based location constraint's expression
// matches the given node. An empty rule always matches (used for flat
// score locations that have no rule at all).
func evalRule(rule string, n *cluster.Node) (bool, error) {
	if rule == "" {
		return true, nil
	}
	ev, err := bexpr.CreateEvaluator(rule)
	if err != nil {
		return false, fmt.Errorf("invalid rule %q: %w", rule, err)
	}
	ok, err := ev.Evaluate(attrsFor(n))
	if err != nil {
		return false, fmt.Errorf("rule %q evaluation failed: %w", rule, err)
	}
	return ok, nil
}
