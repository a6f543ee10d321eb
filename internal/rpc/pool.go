// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package rpc

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	dedupCacheSize  = 4096
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 30 * time.Second
	maxDialAttempts = 5
)

// Pool manages the active Transport to every configured peer and the
// reference-based duplicate cache spec.md §6 requires ("delivery is
// best-effort with at-least-once retry on reconnect; duplicates are
// deduped by reference"). Grounded on the teacher's golang-lru/v2
// dependency for exactly this kind of bounded cache.
type Pool struct {
	log   hclog.Logger
	dedup *lru.Cache[string, struct{}]

	mu    sync.Mutex
	peers map[string]*Transport
}

// NewPool returns an empty Pool ready to Dial peers into.
func NewPool(log hclog.Logger) (*Pool, error) {
	cache, err := lru.New[string, struct{}](dedupCacheSize)
	if err != nil {
		return nil, fmt.Errorf("rpc: allocate dedup cache: %w", err)
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Pool{log: log, dedup: cache, peers: make(map[string]*Transport)}, nil
}

// DialAll connects to every address in addrs (peer name -> TCP address),
// retrying each with exponential backoff up to maxDialAttempts. Failures
// across the whole batch are aggregated with go-multierror so a caller
// sees every unreachable peer in one pass rather than stopping at the
// first.
func (p *Pool) DialAll(addrs map[string]string) error {
	var result error
	for peer, addr := range addrs {
		t, err := p.dialWithBackoff(peer, addr)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("peer %s (%s): %w", peer, addr, err))
			continue
		}
		p.mu.Lock()
		p.peers[peer] = t
		p.mu.Unlock()
	}
	return result
}

func (p *Pool) dialWithBackoff(peer, addr string) (*Transport, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxDialAttempts; attempt++ {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			t, err := DialClient(peer, conn)
			if err == nil {
				return t, nil
			}
			lastErr = err
		} else {
			lastErr = err
		}
		p.log.Debug("dial attempt failed, backing off", "peer", peer, "attempt", attempt, "error", lastErr)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil, lastErr
}

// Send routes env to the named peer's Transport.
func (p *Pool) Send(peer string, env Envelope) error {
	p.mu.Lock()
	t, ok := p.peers[peer]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("rpc: no connection to peer %s", peer)
	}
	return t.Send(env)
}

// Seen reports whether env.Reference has already been delivered, and
// records it if not; callers drop the message on a true return instead of
// redelivering a retried send (spec.md §6 "duplicates are deduped by
// reference").
func (p *Pool) Seen(reference string) bool {
	if reference == "" {
		return false
	}
	if p.dedup.Contains(reference) {
		return true
	}
	p.dedup.Add(reference, struct{}{})
	return false
}

// Remove drops a peer's transport, e.g. after membership reports it lost.
func (p *Pool) Remove(peer string) {
	p.mu.Lock()
	t, ok := p.peers[peer]
	delete(p.peers, peer)
	p.mu.Unlock()
	if ok {
		_ = t.Close()
	}
}
