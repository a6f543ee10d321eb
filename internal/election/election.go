// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

// Package election implements DC election and the join handshake spec.md
// §4.8 specifies: lowest-uuid-wins among online candidates, followed by a
// four-message handshake (join_announce/join_offer/join_request/join_ack)
// that brings every other node's state up to the new DC's.
package election

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tahliar/pacemaker/internal/cib"
	"github.com/tahliar/pacemaker/internal/rpc"
)

const (
	SubtypeJoinAnnounce = "join_announce"
	SubtypeJoinOffer    = "join_offer"
	SubtypeJoinRequest  = "join_request"
	SubtypeJoinAck      = "join_ack"
)

// Winner picks the lowest-uuid candidate among online node ids (spec.md
// §4.8). A tie is impossible by construction (uuids are unique), so the
// lexicographically-least string is simply the winner.
func Winner(onlineIDs []string) string {
	if len(onlineIDs) == 0 {
		return ""
	}
	sorted := append([]string(nil), onlineIDs...)
	sort.Strings(sorted)
	return sorted[0]
}

// IsDC reports whether selfID would win the election among onlineIDs.
func IsDC(selfID string, onlineIDs []string) bool {
	return Winner(onlineIDs) == selfID
}

// Integrator runs DC-side join bookkeeping: for each peer it expects to
// join, track which handshake phase that peer has reached, and report once
// every expected peer has completed the handshake (spec.md §4.7
// "S_INTEGRATION ->[joins complete]-> S_FINALIZE_JOIN").
type Integrator struct {
	selfID string
	epoch  cib.Epoch

	mu      sync.Mutex
	pending map[string]string // peer -> last phase seen
}

// NewIntegrator starts a fresh integration round for the given expected
// CIB epoch, announced to joining peers in every join_offer.
func NewIntegrator(selfID string, epoch cib.Epoch) *Integrator {
	return &Integrator{selfID: selfID, epoch: epoch, pending: make(map[string]string)}
}

// HandleAnnounce answers a peer's join_announce with a join_offer carrying
// the expected epoch.
func (in *Integrator) HandleAnnounce(peer string) rpc.Envelope {
	in.mu.Lock()
	in.pending[peer] = SubtypeJoinAnnounce
	in.mu.Unlock()
	return rpc.Envelope{
		From: in.selfID, To: peer, Type: rpc.TypeCRMD, Subtype: SubtypeJoinOffer,
		PayloadXML: []byte(encodeEpoch(in.epoch)),
	}
}

// HandleRequest records the peer's join_request (carrying its local state
// in PayloadXML, passed through unexamined here — internal/cib.Ingest is
// what actually interprets it) and returns the join_ack to broadcast.
func (in *Integrator) HandleRequest(peer string) rpc.Envelope {
	in.mu.Lock()
	in.pending[peer] = SubtypeJoinRequest
	in.mu.Unlock()
	return rpc.Envelope{
		From: in.selfID, To: peer, Type: rpc.TypeCRMD, Subtype: SubtypeJoinAck,
	}
}

// Complete reports whether every peer in expected has reached
// join_request, i.e. integration is done and S_FINALIZE_JOIN can proceed.
func (in *Integrator) Complete(expected []string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, peer := range expected {
		if in.pending[peer] != SubtypeJoinRequest {
			return false
		}
	}
	return true
}

// Joiner is the non-DC side of the handshake: announce candidacy, respond
// to the DC's offer with a request, and recognize the final ack.
type Joiner struct {
	selfID string
	dcID   string
}

// NewJoiner targets the given elected DC.
func NewJoiner(selfID, dcID string) *Joiner {
	return &Joiner{selfID: selfID, dcID: dcID}
}

// Announce produces this node's join_announce to send the DC.
func (j *Joiner) Announce() rpc.Envelope {
	return rpc.Envelope{From: j.selfID, To: j.dcID, Type: rpc.TypeCRMD, Subtype: SubtypeJoinAnnounce}
}

// HandleOffer answers a join_offer with this node's join_request, carrying
// localState (e.g. a serialized local CIB fragment) as the payload.
func (j *Joiner) HandleOffer(localState []byte) rpc.Envelope {
	return rpc.Envelope{
		From: j.selfID, To: j.dcID, Type: rpc.TypeCRMD, Subtype: SubtypeJoinRequest,
		PayloadXML: localState,
	}
}

// HandleAck reports whether env is the terminal join_ack from our DC,
// meaning the FSM can advance S_INTEGRATION -> S_FINALIZE_JOIN.
func (j *Joiner) HandleAck(env rpc.Envelope) bool {
	return env.From == j.dcID && env.Subtype == SubtypeJoinAck
}

func encodeEpoch(e cib.Epoch) string {
	return fmt.Sprintf("admin=%d,epoch=%d,updates=%d", e.AdminEpoch, e.Epoch, e.NumUpdates)
}
