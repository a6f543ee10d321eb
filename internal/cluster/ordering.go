// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cluster

// OrderType is the bit-set describing how an ordering edge propagates
// runnability and mandatoriness between its two actions (spec.md §3/§4.4).
type OrderType uint32

const (
	OrderOptional OrderType = 1 << iota
	OrderImpliesThen
	OrderRunnableLeft
	OrderSerialize
	OrderThenCancelsFirst
	OrderAsymmetric
	OrderOneWay
)

// Ordering is a raw "first before then" edge, either declared in config or
// implied by resource structure (group sequencing, clone start_0 hubs).
// First/Then name actions by a late-bindable key (resource+task+node)
// rather than an Action.ID, because config-declared orderings are parsed
// before the actions they reference exist; internal/scheduler resolves
// them to concrete Action IDs during action synthesis.
type Ordering struct {
	ID   string
	First ActionKey
	Then  ActionKey
	Type  OrderType
}

// ActionKey names an action before it's been synthesized into a concrete
// Action, the way a late-bound ordering constraint does in the CIB.
type ActionKey struct {
	Resource string
	Task     Task
	Node     string // optional; "" matches any node for that resource+task
}
