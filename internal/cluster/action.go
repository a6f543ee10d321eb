// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cluster

import "fmt"

// Task is the operation an Action performs.
type Task int

const (
	TaskMonitor Task = iota
	TaskStart
	TaskStop
	TaskPromote
	TaskDemote
	TaskNotify
	TaskStopped
	TaskStarted
	TaskPromoted
	TaskDemoted
	// pseudo milestones for collective resources
	TaskStartZero
	TaskStartedZero
	TaskStopZero
	TaskStoppedZero
	// TaskFence is a crm_event: the fencer's confirmation that a node was
	// shot, substituted for a stop whenever that stop's resource has
	// on-fail=fence (spec.md §8 scenario 3, SPEC_FULL.md §3 "Fencing
	// topology").
	TaskFence
)

func (t Task) String() string {
	switch t {
	case TaskMonitor:
		return "monitor"
	case TaskStart:
		return "start"
	case TaskStop:
		return "stop"
	case TaskPromote:
		return "promote"
	case TaskDemote:
		return "demote"
	case TaskNotify:
		return "notify"
	case TaskStopped:
		return "stopped"
	case TaskStarted:
		return "started"
	case TaskPromoted:
		return "promoted"
	case TaskDemoted:
		return "demoted"
	case TaskStartZero:
		return "start_0"
	case TaskStartedZero:
		return "started_0"
	case TaskStopZero:
		return "stop_0"
	case TaskStoppedZero:
		return "stopped_0"
	case TaskFence:
		return "fence"
	default:
		return "unknown"
	}
}

// ActionFlags is a bit-set describing an action's standing in the graph.
type ActionFlags uint32

const (
	FlagOptional ActionFlags = 1 << iota
	FlagRunnable
	FlagPseudo
	FlagMigrateRunnable
	FlagFailed
)

func (f ActionFlags) Has(flag ActionFlags) bool { return f&flag != 0 }
func (f ActionFlags) Set(flag ActionFlags) ActionFlags { return f | flag }
func (f ActionFlags) Clear(flag ActionFlags) ActionFlags { return f &^ flag }

// Action is one step in the transition graph: an operation against a
// resource, optionally targeted at a node, with the edges that order it
// relative to other actions.
type Action struct {
	ID         uint64 // stable arena index within one scheduler run
	UUID       string // rsc_op_interval identity; internal/scheduler leaves it empty
	Resource   string // resource ID this action belongs to ("" for crm_event)
	Task       Task
	Node       string // target node ID, "" for cluster-wide pseudo-events
	Interval   int    // ms; 0 for non-recurring
	Timeout    int    // ms
	Flags      ActionFlags
	Attributes map[string]string // CRM_meta_* payload

	// Before/After hold action IDs this edge relates to; the ordering
	// propagator (internal/scheduler) consumes the raw Ordering edges and
	// produces these as a convenience index, discarded with the rest of
	// the WorkingSet at the end of a run.
	Before []uint64
	After  []uint64
}

func (a *Action) String() string {
	if a.Node != "" {
		return fmt.Sprintf("%s %s on %s", a.Task, a.Resource, a.Node)
	}
	return fmt.Sprintf("%s %s", a.Task, a.Resource)
}

// Runnable/Optional are convenience predicates over Flags, used pervasively
// by the ordering propagator (spec.md §4.4).
func (a *Action) Runnable() bool { return a.Flags.Has(FlagRunnable) }
func (a *Action) Optional() bool { return a.Flags.Has(FlagOptional) }
func (a *Action) Pseudo() bool   { return a.Flags.Has(FlagPseudo) }
