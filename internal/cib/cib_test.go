// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cib

import (
	"testing"

	"github.com/shoenig/test/must"
)

func TestEpoch_Newer_ComparesAdminEpochFirst(t *testing.T) {
	e := Epoch{AdminEpoch: 1, Epoch: 9, NumUpdates: 9}
	other := Epoch{AdminEpoch: 2, Epoch: 0, NumUpdates: 0}
	must.True(t, e.Newer(other))
}

func TestEpoch_Newer_FallsBackToEpochThenNumUpdates(t *testing.T) {
	base := Epoch{AdminEpoch: 1, Epoch: 1, NumUpdates: 5}
	must.True(t, base.Newer(Epoch{AdminEpoch: 1, Epoch: 2, NumUpdates: 0}))
	must.True(t, base.Newer(Epoch{AdminEpoch: 1, Epoch: 1, NumUpdates: 6}))
	must.False(t, base.Newer(Epoch{AdminEpoch: 1, Epoch: 1, NumUpdates: 5}))
	must.False(t, base.Newer(Epoch{AdminEpoch: 1, Epoch: 1, NumUpdates: 4}))
}

func TestEpoch_String_IsDotted(t *testing.T) {
	must.Eq(t, "1.2.3", Epoch{AdminEpoch: 1, Epoch: 2, NumUpdates: 3}.String())
}
