// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

// Package cib implements the controller's side of the CIB external
// collaborator (SPEC_FULL.md §6): turning a CIB XML document plus a live
// membership list into a cluster.WorkingSet, and writing status/attribute
// updates back under optimistic concurrency.
package cib

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-version"
)

// Epoch is the optimistic-concurrency triple spec.md §6 requires on every
// CIB write: a rejected write means the epoch moved under you and the
// caller must re-read before retrying.
type Epoch struct {
	AdminEpoch uint32
	Epoch      uint32
	NumUpdates uint32
}

// String renders the triple as a dotted version string so it can be
// compared with go-version the same way the rest of the pack compares
// schema/release versions.
func (e Epoch) String() string {
	return fmt.Sprintf("%d.%d.%d", e.AdminEpoch, e.Epoch, e.NumUpdates)
}

// Newer reports whether other is a later version than e. AdminEpoch/Epoch/
// NumUpdates compares lexicographically the same way a dotted semver
// triple does, so this defers to go-version's Compare instead of hand-
// rolling the three-way tiebreak.
func (e Epoch) Newer(other Epoch) bool {
	ev, err := version.NewVersion(e.String())
	if err != nil {
		return false
	}
	ov, err := version.NewVersion(other.String())
	if err != nil {
		return false
	}
	return ov.GreaterThan(ev)
}

// ErrConflict is returned by Store.Write when the epoch supplied by the
// caller no longer matches the store's current epoch.
var ErrConflict = fmt.Errorf("cib: epoch conflict, refresh and retry")

// Store is the interface the rest of the controller uses to read and
// write the CIB; SPEC_FULL.md keeps the actual storage engine external
// (this module ships an in-memory implementation good enough for tests and
// for driving the scheduler/executor loop end to end — see memstore.go).
type Store interface {
	// Read returns the current document bytes and its epoch.
	Read(ctx context.Context) ([]byte, Epoch, error)
	// Write performs an optimistic-concurrency update: if expect doesn't
	// match the store's current epoch, ErrConflict is returned and the
	// document is unchanged.
	Write(ctx context.Context, expect Epoch, doc []byte) (Epoch, error)
	// Subscribe registers a channel that receives the new epoch after
	// every successful write, including ones this process didn't make.
	Subscribe() <-chan Epoch
}

// SchemaError aggregates every ingestion problem found in one pass using
// go-multierror, rather than stopping at the first bad element.
type SchemaError struct {
	*multierror.Error
}

func newSchemaError() *SchemaError {
	return &SchemaError{Error: &multierror.Error{}}
}

func (e *SchemaError) add(format string, args ...interface{}) {
	e.Error = multierror.Append(e.Error, fmt.Errorf(format, args...))
}

func (e *SchemaError) orNil() error {
	if e.Error == nil || len(e.Error.Errors) == 0 {
		return nil
	}
	return e
}
