// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

// Package membership wraps github.com/hashicorp/memberlist as the gossip
// transport behind spec.md §3's "membership state (member|lost|pending)"
// field and §4.7's I_NODE_JOIN/I_NODE_LEFT FSM inputs (SPEC_FULL.md §4.9).
package membership

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/memberlist"
	"github.com/tahliar/pacemaker/internal/cluster"
)

// Event is what the watcher delivers to the FSM: a membership state change
// for a single node, ready to drive I_NODE_JOIN / I_NODE_LEFT.
type Event struct {
	NodeID string
	State  cluster.MembershipState
}

// Watcher drives a memberlist cluster and turns its join/leave/update
// notifications into a channel of Events, decoupling internal/fsm from
// memberlist's own delegate-callback API.
type Watcher struct {
	log    hclog.Logger
	list   *memberlist.Memberlist
	events chan Event

	mu    sync.Mutex
	state map[string]cluster.MembershipState
}

// Config is the subset of memberlist's configuration this module exposes;
// everything else keeps memberlist's own defaults (memberlist.DefaultLocalConfig).
type Config struct {
	NodeID    string
	BindAddr  string
	BindPort  int
	LogOutput hclog.Logger
}

// New starts a memberlist instance bound per cfg and returns a Watcher
// ready to stream Events. Join is a separate step (Watcher.Join) so
// callers can start listening before they know the seed peers.
func New(cfg Config) (*Watcher, error) {
	w := &Watcher{
		log:    cfg.LogOutput,
		events: make(chan Event, 64),
		state:  make(map[string]cluster.MembershipState),
	}
	if w.log == nil {
		w.log = hclog.NewNullLogger()
	}

	mlCfg := memberlist.DefaultLocalConfig()
	mlCfg.Name = cfg.NodeID
	if cfg.BindAddr != "" {
		mlCfg.BindAddr = cfg.BindAddr
	}
	if cfg.BindPort != 0 {
		mlCfg.BindPort = cfg.BindPort
		mlCfg.AdvertisePort = cfg.BindPort
	}
	mlCfg.Events = &eventDelegate{w: w}

	list, err := memberlist.Create(mlCfg)
	if err != nil {
		return nil, err
	}
	w.list = list
	return w, nil
}

// Join contacts the given seed addresses and merges their membership view
// into this node's.
func (w *Watcher) Join(seeds []string) (int, error) {
	if len(seeds) == 0 {
		return 0, nil
	}
	return w.list.Join(seeds)
}

// Events returns the channel of membership changes; the FSM's event loop
// (internal/ctlrd) selects on it alongside the CIB channel and a ticker.
func (w *Watcher) Events() <-chan Event { return w.events }

// Members returns the names of the current live members; internal/ctlrd
// turns them into cib.MembershipNode values for internal/cib.Ingest.
func (w *Watcher) Members() []string {
	nodes := w.list.Members()
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.Name)
	}
	return ids
}

// Leave gracefully announces departure with the given timeout budget and
// shuts the underlying memberlist instance down.
func (w *Watcher) Leave(timeoutMS int) error {
	if err := w.list.Leave(msDuration(timeoutMS)); err != nil {
		w.log.Warn("memberlist leave failed", "error", err)
	}
	return w.list.Shutdown()
}

func (w *Watcher) record(id string, state cluster.MembershipState) {
	w.mu.Lock()
	prev, ok := w.state[id]
	w.state[id] = state
	w.mu.Unlock()
	if ok && prev == state {
		return
	}
	select {
	case w.events <- Event{NodeID: id, State: state}:
	default:
		w.log.Warn("membership event channel full, dropping event", "node", id)
	}
}

// eventDelegate adapts memberlist's EventDelegate interface to
// Watcher.record; kept unexported since nothing outside this package needs
// memberlist's own types.
type eventDelegate struct {
	w *Watcher
}

func (d *eventDelegate) NotifyJoin(n *memberlist.Node) {
	d.w.record(n.Name, cluster.MemberOnline)
}

func (d *eventDelegate) NotifyLeave(n *memberlist.Node) {
	d.w.record(n.Name, cluster.MemberLost)
}

func (d *eventDelegate) NotifyUpdate(n *memberlist.Node) {
	d.w.record(n.Name, cluster.MemberOnline)
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
