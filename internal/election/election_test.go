// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package election

import (
	"testing"

	"github.com/shoenig/test/must"
	"github.com/tahliar/pacemaker/internal/cib"
	"github.com/tahliar/pacemaker/internal/rpc"
)

func TestWinner_LowestUUIDWins(t *testing.T) {
	must.Eq(t, "n1", Winner([]string{"n3", "n1", "n2"}))
}

func TestWinner_EmptyHasNoWinner(t *testing.T) {
	must.Eq(t, "", Winner(nil))
}

func TestIsDC(t *testing.T) {
	ids := []string{"n2", "n1", "n3"}
	must.True(t, IsDC("n1", ids))
	must.False(t, IsDC("n2", ids))
}

func TestIntegrator_CompleteOnlyAfterEveryPeerRequests(t *testing.T) {
	in := NewIntegrator("dc", cib.Epoch{AdminEpoch: 1, Epoch: 2, NumUpdates: 3})
	peers := []string{"n2", "n3"}

	must.False(t, in.Complete(peers))

	in.HandleAnnounce("n2")
	must.False(t, in.Complete(peers))

	in.HandleRequest("n2")
	must.False(t, in.Complete(peers)) // n3 hasn't requested yet

	in.HandleRequest("n3")
	must.True(t, in.Complete(peers))
}

func TestJoiner_Handshake(t *testing.T) {
	j := NewJoiner("n2", "n1")
	announce := j.Announce()
	must.Eq(t, "n1", announce.To)
	must.Eq(t, SubtypeJoinAnnounce, announce.Subtype)

	req := j.HandleOffer([]byte("state"))
	must.Eq(t, SubtypeJoinRequest, req.Subtype)
	must.Eq(t, []byte("state"), req.PayloadXML)

	must.True(t, j.HandleAck(rpc.Envelope{From: "n1", Subtype: SubtypeJoinAck}))
	must.False(t, j.HandleAck(rpc.Envelope{From: "n3", Subtype: SubtypeJoinAck}))
}
