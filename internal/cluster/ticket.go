// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cluster

// Ticket is a named, cluster-wide gate used by geo-clustering setups to
// allow or forbid a whole class of resources from running at a site
// (SPEC_FULL.md §3 "Ticket"). A resource opts in via
// ResourceMeta.TicketDep; if the named ticket isn't Granted, the resource
// is banned everywhere unless TicketLoss is "freeze", which keeps it on its
// current node. TicketLoss "fence" is handled like the default: the
// resource is banned everywhere and stopped, and no fencing is emitted.
type Ticket struct {
	ID         string
	Granted    bool
	Standby    bool
	Generation uint64
}
