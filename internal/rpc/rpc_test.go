// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package rpc

import (
	"net"
	"testing"

	"github.com/shoenig/test/must"
)

func TestTransport_SendAcceptRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	clientDone := make(chan error, 1)
	var client *Transport
	go func() {
		var err error
		client, err = DialClient("server", clientConn)
		clientDone <- err
	}()

	server, err := AcceptServer("client", serverConn)
	must.NoError(t, err)
	must.NoError(t, <-clientDone)
	must.NotNil(t, client)

	sendDone := make(chan error, 1)
	go func() {
		sendDone <- client.Send(Envelope{
			From: "n1", To: "n2", Type: TypeCRMD, Subtype: "graph",
			Reference: "ref-1", PayloadXML: []byte("<transition_graph/>"),
		})
	}()

	env, err := server.Accept()
	must.NoError(t, err)
	must.NoError(t, <-sendDone)

	must.Eq(t, "n1", env.From)
	must.Eq(t, "n2", env.To)
	must.Eq(t, TypeCRMD, env.Type)
	must.Eq(t, "ref-1", env.Reference)
	must.Eq(t, []byte("<transition_graph/>"), env.PayloadXML)

	must.NoError(t, client.Close())
	must.NoError(t, server.Close())
}
