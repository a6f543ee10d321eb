// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package rpc

import (
	"testing"

	"github.com/shoenig/test/must"
)

func TestPool_SeenDedupesByReference(t *testing.T) {
	p, err := NewPool(nil)
	must.NoError(t, err)

	must.False(t, p.Seen("ref-1"))
	must.True(t, p.Seen("ref-1"))
	must.False(t, p.Seen("ref-2"))
}

func TestPool_SeenIgnoresEmptyReference(t *testing.T) {
	p, err := NewPool(nil)
	must.NoError(t, err)

	must.False(t, p.Seen(""))
	must.False(t, p.Seen(""))
}

func TestPool_SendWithoutConnectionErrors(t *testing.T) {
	p, err := NewPool(nil)
	must.NoError(t, err)

	err = p.Send("ghost", Envelope{Type: TypeCRMD})
	must.Error(t, err)
}
