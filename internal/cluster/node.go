// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cluster

// MembershipState reflects what the cluster layer currently believes about
// a node's participation, independent of whether resources are allowed to
// run there.
type MembershipState int

const (
	MemberUnknown MembershipState = iota
	MemberOnline
	MemberLost
	MemberPending
)

func (m MembershipState) String() string {
	switch m {
	case MemberOnline:
		return "member"
	case MemberLost:
		return "lost"
	case MemberPending:
		return "pending"
	default:
		return "unknown"
	}
}

// NodeRole distinguishes a full cluster node from the lighter-weight node
// kinds the allocator also has to place resources on.
type NodeRole int

const (
	RoleCluster NodeRole = iota
	RoleRemote
	RoleGuest
	RoleBundle
)

// Node is an immutable-per-run snapshot of one cluster member plus the
// mutable scratch fields the allocator uses while it runs.
type Node struct {
	ID         string
	Name       string
	Membership MembershipState
	Online     bool
	Role       NodeRole
	Attributes map[string]string

	// Scores is a per-resource score on this node, keyed by resource ID,
	// read through ScoreFor and written through AddScore. Ingestion leaves
	// it empty; location constraints reach the allocator through
	// WorkingSet.Locations instead.
	Scores map[string]Score

	// Count is the number of resource instances assigned to this node
	// during the current scheduler run. Reset to zero at the start of
	// every run (spec.md §3 invariant).
	Count int
}

// NewNode returns a Node ready for a scheduler run: Count at zero and the
// Scores map initialized.
func NewNode(id, name string) *Node {
	return &Node{
		ID:         id,
		Name:       name,
		Attributes: make(map[string]string),
		Scores:     make(map[string]Score),
	}
}

// ScoreFor returns the node's currently accumulated score for a resource,
// defaulting to Zero if no constraint has touched it yet.
func (n *Node) ScoreFor(resourceID string) Score {
	if s, ok := n.Scores[resourceID]; ok {
		return s
	}
	return Zero
}

// AddScore folds delta into the node's running score for resourceID using
// saturating addition.
func (n *Node) AddScore(resourceID string, delta Score) {
	n.Scores[resourceID] = n.ScoreFor(resourceID).Add(delta)
}

// Eligible reports whether this node can host any resource at all this run:
// online and a member (not lost). Role is not checked.
func (n *Node) Eligible() bool {
	return n.Online && n.Membership == MemberOnline
}
