// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cluster

// Colocation is a "dependent must/must-not run where primary runs"
// constraint. WorkingSet indexes it on both endpoints
// (ColocationsAsDependent / ColocationsAsPrimary) so the allocator never
// has to scan the whole constraint list.
type Colocation struct {
	ID         string
	Dependent  string // resource ID
	Primary    string // resource ID
	Score      Score
	RoleDep    Role
	RolePrimary Role
	// Influence mirrors Pacemaker's influence/"with-rsc" flag: for
	// with-this direction and a positive score, the colocation is only
	// applied when Influence is set and the primary is neither failed nor
	// about to move (spec.md §4.2 step 3).
	Influence bool
}

// Mandatory reports whether this is a must-collocate (or must-not, for
// MinusInfinity) constraint.
func (c *Colocation) Mandatory() bool {
	return c.Score.Mandatory() || c.Score.Banned()
}
