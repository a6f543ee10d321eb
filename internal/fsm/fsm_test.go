// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package fsm

import (
	"testing"

	"github.com/shoenig/test/must"
)

func TestMachine_DCPath(t *testing.T) {
	m := New()
	must.Eq(t, SStarting, m.State())

	st, _, err := m.Fire(IStartup)
	must.NoError(t, err)
	must.Eq(t, SPending, st)

	st, _, err = m.Fire(IElection)
	must.NoError(t, err)
	must.Eq(t, SElection, st)

	st, actions, err := m.Fire(IElectionDC)
	must.NoError(t, err)
	must.Eq(t, SIntegration, st)
	must.Eq(t, []Action{ALog, ADCTakeover}, actions)

	st, _, err = m.Fire(IJoinAck)
	must.NoError(t, err)
	must.Eq(t, SFinalizeJoin, st)

	st, actions, err = m.Fire(ICIBUpdate)
	must.NoError(t, err)
	must.Eq(t, SPolicyEngine, st)
	must.Eq(t, []Action{ALog, APEInvoke}, actions)

	st, actions, err = m.Fire(IPESuccess)
	must.NoError(t, err)
	must.Eq(t, STransitionEngine, st)
	must.Eq(t, []Action{ALog, ATEInvoke}, actions)

	st, _, err = m.Fire(ITESuccess)
	must.NoError(t, err)
	must.Eq(t, SIdle, st)
}

func TestMachine_FailDuringTransitionReentersPolicyEngine(t *testing.T) {
	m := &Machine{state: STransitionEngine}
	st, actions, err := m.Fire(IFail)
	must.NoError(t, err)
	must.Eq(t, SPolicyEngine, st)
	must.Eq(t, []Action{ALog, ATECancel, APEInvoke}, actions)
}

func TestMachine_ErrorAlwaysGoesToRecovery(t *testing.T) {
	for _, s := range []State{SIdle, SElection, SPolicyEngine, STransitionEngine} {
		m := &Machine{state: s}
		st, actions, err := m.Fire(IError)
		must.NoError(t, err)
		must.Eq(t, SRecovery, st)
		must.Eq(t, []Action{ALog, ARecover}, actions)
	}
}

func TestMachine_ShutdownDrainsToStopping(t *testing.T) {
	m := &Machine{state: SIdle}
	st, actions, err := m.Fire(IShutdown)
	must.NoError(t, err)
	must.Eq(t, SStopping, st)
	must.Eq(t, []Action{ALog, AShutdownReq}, actions)

	st, actions, err = m.Fire(ITESuccess)
	must.NoError(t, err)
	must.Eq(t, STerminate, st)
	must.Eq(t, []Action{ALog, AExit0}, actions)
}

func TestMachine_InvalidInputErrors(t *testing.T) {
	m := New()
	_, _, err := m.Fire(ITESuccess)
	must.Error(t, err)
}

func TestActionPriority_Exit1AlwaysLast(t *testing.T) {
	ordered := orderActions([]Action{AExit1, ALog, ARecover})
	must.Eq(t, []Action{ALog, ARecover, AExit1}, ordered)
}
