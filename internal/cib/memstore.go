// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cib

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store implementation. SPEC_FULL.md keeps the
// real CIB storage engine an external collaborator; this is the stand-in
// that lets internal/ctlrd and the test suite drive the full read-compute
// write loop without one.
type MemStore struct {
	mu   sync.Mutex
	doc  []byte
	ep   Epoch
	subs []chan Epoch
}

// NewMemStore returns a MemStore seeded with the given document at epoch
// zero.
func NewMemStore(doc []byte) *MemStore {
	return &MemStore{doc: append([]byte(nil), doc...)}
}

func (m *MemStore) Read(ctx context.Context) ([]byte, Epoch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.doc...), m.ep, nil
}

func (m *MemStore) Write(ctx context.Context, expect Epoch, doc []byte) (Epoch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expect != m.ep {
		return m.ep, ErrConflict
	}
	m.doc = append([]byte(nil), doc...)
	m.ep.NumUpdates++
	newEp := m.ep
	for _, ch := range m.subs {
		select {
		case ch <- newEp:
		default:
		}
	}
	return newEp, nil
}

func (m *MemStore) Subscribe() <-chan Epoch {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Epoch, 8)
	m.subs = append(m.subs, ch)
	return ch
}
