// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

// Package rpc implements the peer messaging collaborator spec.md §6 names:
// framed {from, to, type, subtype, reference, payload_xml} messages between
// controllers, multiplexed over one TCP connection per peer
// (SPEC_FULL.md §4.10).
package rpc

import (
	"fmt"
	"net"

	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/hashicorp/yamux"
)

// Message types spec.md §6 names explicitly.
const (
	TypeCRMD      = "crmd"       // controller-to-controller
	TypeLRMD      = "lrmd"       // to local executor proxy
	TypeStonithNG = "stonith-ng" // to fencer
)

// Envelope is one peer RPC message (spec.md §6 "Peer RPC"). PayloadXML
// carries the transition-graph or CIB fragment untouched, exactly as the
// wire format requires; only the envelope around it uses the teacher's
// usual compact msgpack encoding.
type Envelope struct {
	From       string
	To         string
	Type       string
	Subtype    string
	Reference  string
	PayloadXML []byte
}

var mh codec.MsgpackHandle

// Transport is one multiplexed connection to a single peer. Every Send
// opens a fresh yamux stream and every inbound message is received on a
// stream accepted by the other side's Transport.Accept loop, mirroring a
// one-shot-request-per-stream RPC style.
type Transport struct {
	peer    string
	session *yamux.Session
}

// DialClient opens the client side of a yamux session over conn, the
// active end of a new peer connection.
func DialClient(peer string, conn net.Conn) (*Transport, error) {
	session, err := yamux.Client(conn, yamux.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("rpc: yamux client handshake with %s: %w", peer, err)
	}
	return &Transport{peer: peer, session: session}, nil
}

// AcceptServer wraps the passive (listening) side of a new peer connection.
func AcceptServer(peer string, conn net.Conn) (*Transport, error) {
	session, err := yamux.Server(conn, yamux.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("rpc: yamux server handshake with %s: %w", peer, err)
	}
	return &Transport{peer: peer, session: session}, nil
}

// Peer returns the logical peer name this transport was opened for.
func (t *Transport) Peer() string { return t.peer }

// Send encodes env as msgpack and writes it to a freshly opened stream.
func (t *Transport) Send(env Envelope) error {
	stream, err := t.session.Open()
	if err != nil {
		return fmt.Errorf("rpc: open stream to %s: %w", t.peer, err)
	}
	defer stream.Close()
	enc := codec.NewEncoder(stream, &mh)
	if err := enc.Encode(&env); err != nil {
		return fmt.Errorf("rpc: encode envelope to %s: %w", t.peer, err)
	}
	return nil
}

// Accept blocks for the next inbound stream and decodes one Envelope from
// it. Callers typically run this in a loop on its own goroutine, feeding
// results into the single-threaded event loop via a channel.
func (t *Transport) Accept() (Envelope, error) {
	stream, err := t.session.Accept()
	if err != nil {
		return Envelope{}, fmt.Errorf("rpc: accept stream from %s: %w", t.peer, err)
	}
	defer stream.Close()
	var env Envelope
	dec := codec.NewDecoder(stream, &mh)
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("rpc: decode envelope from %s: %w", t.peer, err)
	}
	return env, nil
}

// Close tears down the underlying yamux session.
func (t *Transport) Close() error {
	return t.session.Close()
}
