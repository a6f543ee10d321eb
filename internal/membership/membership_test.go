// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package membership

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/shoenig/test/must"
	"github.com/tahliar/pacemaker/internal/cluster"
)

func newTestWatcher() *Watcher {
	return &Watcher{
		log:    hclog.NewNullLogger(),
		events: make(chan Event, 4),
		state:  make(map[string]cluster.MembershipState),
	}
}

func TestWatcher_RecordEmitsOnFirstSighting(t *testing.T) {
	w := newTestWatcher()
	w.record("n1", cluster.MemberOnline)

	select {
	case ev := <-w.events:
		must.Eq(t, "n1", ev.NodeID)
		must.Eq(t, cluster.MemberOnline, ev.State)
	default:
		t.Fatal("expected an event")
	}
}

func TestWatcher_RecordDedupesUnchangedState(t *testing.T) {
	w := newTestWatcher()
	w.record("n1", cluster.MemberOnline)
	<-w.events
	w.record("n1", cluster.MemberOnline) // no state change: no second event

	select {
	case ev := <-w.events:
		t.Fatalf("unexpected duplicate event: %+v", ev)
	default:
	}
}

func TestWatcher_RecordEmitsOnTransition(t *testing.T) {
	w := newTestWatcher()
	w.record("n1", cluster.MemberOnline)
	<-w.events
	w.record("n1", cluster.MemberLost)

	select {
	case ev := <-w.events:
		must.Eq(t, cluster.MemberLost, ev.State)
	default:
		t.Fatal("expected a transition event")
	}
}
