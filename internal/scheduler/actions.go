// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"sort"
	"strings"

	"github.com/tahliar/pacemaker/internal/cluster"
)

const defaultMonitorInterval = 10000 // ms
const defaultTimeout = 20000         // ms

// SynthesizeActions turns the allocator's per-resource decisions into
// concrete Actions (spec.md §4.3): start/stop/promote/demote/monitor for
// primitives, plus pseudo start_0/started_0/stop_0/stopped_0 hubs for every
// collective resource.
func SynthesizeActions(ws *cluster.WorkingSet) {
	visited := make(map[string]bool, len(ws.Resources))
	for _, id := range ws.ResourceOrder {
		if ws.Resources[id].Parent == "" {
			synthesizeRecursive(ws, id, visited)
		}
	}
}

func synthesizeRecursive(ws *cluster.WorkingSet, id string, visited map[string]bool) {
	if visited[id] {
		return
	}
	visited[id] = true
	r := ws.Resources[id]
	if r == nil {
		return
	}

	if r.IsCollective() {
		children := r.Children
		if r.Variant == cluster.VariantClone || r.Variant == cluster.VariantBundle {
			children = r.Children[1:] // skip the un-scheduled template
		}
		for _, childID := range children {
			synthesizeRecursive(ws, childID, visited)
		}
		synthesizeCollective(ws, r, children)
		return
	}

	if r.Parent != "" {
		parent := ws.Resources[r.Parent]
		if parent != nil && (parent.Variant == cluster.VariantClone || parent.Variant == cluster.VariantBundle) && len(parent.Children) > 0 && parent.Children[0] == id {
			return // unscheduled clone/bundle template, never synthesized
		}
	}
	synthesizePrimitive(ws, r)
}

func synthesizePrimitive(ws *cluster.WorkingSet, r *cluster.Resource) {
	if r.Primitive == nil {
		return
	}
	current := r.CurrentNode()
	next := r.NextNode
	role := r.Primitive.Role
	nextRole := r.Primitive.NextRole

	switch {
	case next == "":
		if role != cluster.RoleStopped {
			emitStopOrFence(ws, r, current)
		}
	case current == "":
		startAction := emitWithNotify(ws, r, cluster.TaskStart, next, "start")
		mon := ws.NewAction(r.ID, cluster.TaskMonitor, next)
		mon.Interval = defaultMonitorInterval
		mon.Timeout = defaultTimeout
		mon.Flags = cluster.FlagRunnable
		linkAfter(mon, startAction)
		if nextRole == cluster.RolePromoted {
			promote := emitWithNotify(ws, r, cluster.TaskPromote, next, "promote")
			linkAfter(promote, startAction)
		}
	case next != current:
		stop := emitStopOrFence(ws, r, current)
		start := emitWithNotify(ws, r, cluster.TaskStart, next, "start")
		start.Flags = start.Flags.Set(cluster.FlagMigrateRunnable)
		linkAfter(start, stop)
		mon := ws.NewAction(r.ID, cluster.TaskMonitor, next)
		mon.Interval = defaultMonitorInterval
		mon.Flags = cluster.FlagRunnable
		linkAfter(mon, start)
	default: // staying put; only role transitions need actions
		if nextRole == cluster.RolePromoted && role != cluster.RolePromoted {
			emitWithNotify(ws, r, cluster.TaskPromote, current, "promote")
		} else if nextRole == cluster.RoleUnpromoted && role == cluster.RolePromoted {
			emitWithNotify(ws, r, cluster.TaskDemote, current, "demote")
		}
	}
}

// emitStopOrFence emits the action that clears r off current: an ordinary
// stop, unless r has failed with on-fail=fence, in which case current can't
// be trusted to run a clean stop and the node must be shot instead
// (SPEC_FULL.md §3 "Fencing topology"). Every subsequent action that would
// have waited on the stop (a migration's start, a group's stop sequence)
// waits on the fence confirmation in exactly the same way, since linkAfter
// doesn't care which kind of action it links.
func emitStopOrFence(ws *cluster.WorkingSet, r *cluster.Resource, current string) *cluster.Action {
	if r.Failed && r.Meta.OnFail == "fence" && current != "" {
		return fenceAction(ws, current)
	}
	return emitWithNotify(ws, r, cluster.TaskStop, current, "stop")
}

// fenceAction returns the crm_event fencing node's fence action, creating it
// the first time any failed resource on that node needs one so multiple
// resources sharing a doomed node share one fence confirmation rather than
// each demanding the node be shot separately.
func fenceAction(ws *cluster.WorkingSet, node string) *cluster.Action {
	for _, a := range ws.Actions {
		if a.Task == cluster.TaskFence && a.Node == node {
			return a
		}
	}
	a := ws.NewAction("", cluster.TaskFence, node)
	a.Flags = cluster.FlagRunnable | cluster.FlagPseudo
	a.Timeout = defaultTimeout
	if devices := fencingDevices(ws, node); len(devices) > 0 {
		a.Attributes = map[string]string{"CRM_meta_stonith_devices": strings.Join(devices, ",")}
	}
	return a
}

// fencingDevices selects the ordered device list a fencer should try for
// node: every topology level whose target matches (an exact node ID, or the
// "*" wildcard level), flattened in ascending index order, the lowest index
// being attempted first (SPEC_FULL.md §3 "Fencing topology").
func fencingDevices(ws *cluster.WorkingSet, node string) []string {
	var levels []*cluster.FencingLevel
	for _, lvl := range ws.Fencing {
		if lvl.Target == node || lvl.Target == "*" {
			levels = append(levels, lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Index < levels[j].Index })

	var devices []string
	for _, lvl := range levels {
		devices = append(devices, lvl.Devices...)
	}
	return devices
}

// emitWithNotify creates the real action and, if the resource opted into
// notifications, brackets it with pre_notify_<op>/confirmed-pre_notify_<op>
// before it and post_notify_<op>d/confirmed-post_notify_<op>d after it
// (SPEC_FULL.md §3 "Notifications", spec.md §8 scenario 2). The notify
// attribute payload is populated for the single resource driving this
// transition; a full multi-instance rollup is the local executor's
// responsibility once it fans the notify out to every peer instance.
func emitWithNotify(ws *cluster.WorkingSet, r *cluster.Resource, task cluster.Task, node, opName string) *cluster.Action {
	if !r.Meta.Notify {
		a := ws.NewAction(r.ID, task, node)
		a.Flags = cluster.FlagRunnable
		a.Timeout = defaultTimeout
		return a
	}

	preNotify := notifyAction(ws, r, "pre", opName, node)
	preConfirm := confirmAction(ws, r, "pre", opName, preNotify)

	real := ws.NewAction(r.ID, task, node)
	real.Flags = cluster.FlagRunnable
	real.Timeout = defaultTimeout
	linkAfter(real, preConfirm)

	postNotify := notifyAction(ws, r, "post", opName, node)
	linkAfter(postNotify, real)
	confirmAction(ws, r, "post", opName, postNotify)

	return real
}

func notifyAction(ws *cluster.WorkingSet, r *cluster.Resource, phase, opName, node string) *cluster.Action {
	a := ws.NewAction(r.ID, cluster.TaskNotify, node)
	a.Flags = cluster.FlagRunnable | cluster.FlagPseudo
	a.Attributes = map[string]string{
		"CRM_meta_notify_type":      phase,
		"CRM_meta_notify_operation": opName,
	}
	switch opName {
	case "stop":
		a.Attributes["CRM_meta_notify_stop_resource"] = r.ID
	case "start":
		a.Attributes["CRM_meta_notify_start_resource"] = r.ID
	case "promote":
		a.Attributes["CRM_meta_notify_promote_resource"] = r.ID
	case "demote":
		a.Attributes["CRM_meta_notify_demote_resource"] = r.ID
	}
	if r.Running() || opName == "start" {
		a.Attributes["CRM_meta_notify_active_resource"] = r.ID
	}
	return a
}

func confirmAction(ws *cluster.WorkingSet, r *cluster.Resource, phase, opName string, notify *cluster.Action) *cluster.Action {
	a := ws.NewAction(r.ID, cluster.TaskNotify, notify.Node)
	a.Flags = cluster.FlagRunnable | cluster.FlagPseudo
	a.Attributes = map[string]string{
		"CRM_meta_notify_type":      phase,
		"CRM_meta_notify_operation": opName,
		"CRM_meta_notify_confirm":   "true",
	}
	linkAfter(a, notify)
	return a
}

// synthesizeCollective emits the start_0/started_0/stop_0/stopped_0 pseudo
// hubs for a group/clone/bundle: runnable iff at least one child's matching
// concrete action is runnable, optional iff every child's is optional
// (spec.md §4.3).
func synthesizeCollective(ws *cluster.WorkingSet, r *cluster.Resource, children []string) {
	startZero := ws.NewAction(r.ID, cluster.TaskStartZero, "")
	startedZero := ws.NewAction(r.ID, cluster.TaskStartedZero, "")
	stopZero := ws.NewAction(r.ID, cluster.TaskStopZero, "")
	stoppedZero := ws.NewAction(r.ID, cluster.TaskStoppedZero, "")
	for _, hub := range []*cluster.Action{startZero, startedZero, stopZero, stoppedZero} {
		hub.Flags = cluster.FlagPseudo | cluster.FlagOptional
	}

	anyStartRunnable, allStartOptional := false, true
	anyStopRunnable, allStopOptional := false, true
	for _, childID := range children {
		if start, ok := findAction(ws, childID, cluster.TaskStart); ok {
			linkAfter(start, startZero)
			linkAfter(startedZero, start)
			if start.Runnable() {
				anyStartRunnable = true
			}
			if !start.Optional() {
				allStartOptional = false
			}
		}
		if stop, ok := findAction(ws, childID, cluster.TaskStop); ok {
			linkAfter(stop, stopZero)
			linkAfter(stoppedZero, stop)
			if stop.Runnable() {
				anyStopRunnable = true
			}
			if !stop.Optional() {
				allStopOptional = false
			}
			// A group restarting must fully stop before it starts again.
			linkAfter(startZero, stoppedZero)
		}
	}
	setHubFlags(startZero, anyStartRunnable, allStartOptional)
	setHubFlags(startedZero, anyStartRunnable, allStartOptional)
	setHubFlags(stopZero, anyStopRunnable, allStopOptional)
	setHubFlags(stoppedZero, anyStopRunnable, allStopOptional)

	if r.Variant == cluster.VariantGroup {
		linkGroupSequence(ws, children)
	}
}

// linkGroupSequence adds the group's implicit member-sequencing edges
// (spec.md §8 scenario 1): each child starts after the previous child's
// start, and stops after the *next* child's stop — groups start top-down
// and stop bottom-up.
func linkGroupSequence(ws *cluster.WorkingSet, children []string) {
	for i := 1; i < len(children); i++ {
		prevStart, ok1 := findAction(ws, children[i-1], cluster.TaskStart)
		curStart, ok2 := findAction(ws, children[i], cluster.TaskStart)
		if ok1 && ok2 {
			linkAfter(curStart, prevStart)
		}
		laterStop, ok3 := findAction(ws, children[i], cluster.TaskStop)
		earlierStop, ok4 := findAction(ws, children[i-1], cluster.TaskStop)
		if ok3 && ok4 {
			// Stop order is the reverse of start order: the earlier
			// child's stop waits on the later child's stop completing.
			linkAfter(earlierStop, laterStop)
		}
	}
}

func setHubFlags(a *cluster.Action, runnable, optional bool) {
	if runnable {
		a.Flags = a.Flags.Set(cluster.FlagRunnable)
	} else {
		a.Flags = a.Flags.Clear(cluster.FlagRunnable)
	}
	if optional {
		a.Flags = a.Flags.Set(cluster.FlagOptional)
	} else {
		a.Flags = a.Flags.Clear(cluster.FlagOptional)
	}
}

func findAction(ws *cluster.WorkingSet, resource string, task cluster.Task) (*cluster.Action, bool) {
	for _, a := range ws.Actions {
		if a.Resource == resource && a.Task == task {
			return a, true
		}
	}
	return nil, false
}

// linkAfter records that before must complete before after runs: a
// spec.md §3 ordering edge synthesized directly (not via the raw Ordering
// list, since both actions already exist in hand).
func linkAfter(after, before *cluster.Action) {
	after.After = append(after.After, before.ID)
	before.Before = append(before.Before, after.ID)
}
