// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

// Package fsm implements the controller finite-state machine (spec.md
// §4.7): a per-node state machine whose inputs come from membership,
// CIB change events, election, peer messages, and the transition
// executor, and whose outputs are action-set side effects such as
// invoking the policy engine or dispatching a transition graph.
package fsm

import "fmt"

// State is one of the controller's thirteen states (spec.md §4.7).
type State int

const (
	SStarting State = iota
	SPending
	SElection
	SIntegration
	SFinalizeJoin
	SNotDC
	SPolicyEngine
	STransitionEngine
	SIdle
	SHalt
	SStopping
	STerminate
	SRecovery
)

func (s State) String() string {
	switch s {
	case SStarting:
		return "S_STARTING"
	case SPending:
		return "S_PENDING"
	case SElection:
		return "S_ELECTION"
	case SIntegration:
		return "S_INTEGRATION"
	case SFinalizeJoin:
		return "S_FINALIZE_JOIN"
	case SNotDC:
		return "S_NOT_DC"
	case SPolicyEngine:
		return "S_POLICY_ENGINE"
	case STransitionEngine:
		return "S_TRANSITION_ENGINE"
	case SIdle:
		return "S_IDLE"
	case SHalt:
		return "S_HALT"
	case SStopping:
		return "S_STOPPING"
	case STerminate:
		return "S_TERMINATE"
	case SRecovery:
		return "S_RECOVERY"
	default:
		return "S_UNKNOWN"
	}
}

// Input is a cause event driving a transition (spec.md §4.7).
type Input int

const (
	IStartup Input = iota
	IJoinAnnounce
	IJoinOffer
	IJoinRequest
	IJoinAck
	IElection
	IElectionDC
	INotDC
	ICIBUpdate
	IPECalc
	IPESuccess
	ITESuccess
	INodeJoin
	INodeLeft
	IFail
	IError
	IShutdown
	IStop
)

func (i Input) String() string {
	switch i {
	case IStartup:
		return "I_STARTUP"
	case IJoinAnnounce:
		return "I_JOIN_ANNOUNCE"
	case IJoinOffer:
		return "I_JOIN_OFFER"
	case IJoinRequest:
		return "I_JOIN_REQUEST"
	case IJoinAck:
		return "I_JOIN_ACK"
	case IElection:
		return "I_ELECTION"
	case IElectionDC:
		return "I_ELECTION_DC"
	case INotDC:
		return "I_NOT_DC"
	case ICIBUpdate:
		return "I_CIB_UPDATE"
	case IPECalc:
		return "I_PE_CALC"
	case IPESuccess:
		return "I_PE_SUCCESS"
	case ITESuccess:
		return "I_TE_SUCCESS"
	case INodeJoin:
		return "I_NODE_JOIN"
	case INodeLeft:
		return "I_NODE_LEFT"
	case IFail:
		return "I_FAIL"
	case IError:
		return "I_ERROR"
	case IShutdown:
		return "I_SHUTDOWN"
	case IStop:
		return "I_STOP"
	default:
		return "I_UNKNOWN"
	}
}

// Action is one action-set side effect a transition triggers (spec.md
// §4.7). A single Fire call can emit several; they are delivered in fixed
// priority order regardless of the order the table lists them in.
type Action int

const (
	ALog Action = iota
	ADCTakeover
	APEInvoke
	ATEInvoke
	ATECancel
	AClJoinResult
	AShutdownReq
	ARecover
	AExit0
	AExit1
)

func (a Action) String() string {
	switch a {
	case ALog:
		return "A_LOG"
	case ADCTakeover:
		return "A_DC_TAKEOVER"
	case APEInvoke:
		return "A_PE_INVOKE"
	case ATEInvoke:
		return "A_TE_INVOKE"
	case ATECancel:
		return "A_TE_CANCEL"
	case AClJoinResult:
		return "A_CL_JOIN_RESULT"
	case AShutdownReq:
		return "A_SHUTDOWN_REQ"
	case ARecover:
		return "A_RECOVER"
	case AExit0:
		return "A_EXIT_0"
	case AExit1:
		return "A_EXIT_1"
	default:
		return "A_UNKNOWN"
	}
}

// actionPriority fixes the within-transition ordering spec.md §4.7
// requires ("a fixed priority table so that, e.g., A_EXIT_1 always runs
// last"). Lower runs first.
var actionPriority = map[Action]int{
	ALog:          0,
	ADCTakeover:   1,
	AClJoinResult: 1,
	APEInvoke:     2,
	ATEInvoke:     2,
	ATECancel:     2,
	ARecover:      3,
	AShutdownReq:  4,
	AExit0:        5,
	AExit1:        6,
}

type transition struct {
	next    State
	actions []Action
}

// table is keyed by (from-state, input); errorTable is the catch-all
// I_ERROR handler that applies from any state (spec.md §4.7 "any input
// classified as I_ERROR transitions to S_RECOVERY").
var table = map[State]map[Input]transition{
	SStarting: {
		IStartup: {SPending, []Action{ALog}},
	},
	SPending: {
		IElection:   {SElection, []Action{ALog}},
		INodeJoin:   {SPending, []Action{ALog}},
		IShutdown:   {SStopping, []Action{ALog, AShutdownReq}},
	},
	SElection: {
		IElectionDC: {SIntegration, []Action{ALog, ADCTakeover}},
		INotDC:      {SNotDC, []Action{ALog}},
		INodeLeft:   {SElection, []Action{ALog}},
		IShutdown:   {SStopping, []Action{ALog, AShutdownReq}},
	},
	SIntegration: {
		IJoinAck:  {SFinalizeJoin, []Action{ALog, AClJoinResult}},
		INodeLeft: {SElection, []Action{ALog}},
		IShutdown: {SStopping, []Action{ALog, AShutdownReq}},
	},
	SFinalizeJoin: {
		ICIBUpdate: {SPolicyEngine, []Action{ALog, APEInvoke}},
		IShutdown:  {SStopping, []Action{ALog, AShutdownReq}},
	},
	SNotDC: {
		IElectionDC: {SIntegration, []Action{ALog, ADCTakeover}},
		IElection:   {SElection, []Action{ALog}},
		IJoinAnnounce: {SNotDC, []Action{ALog}},
		IJoinOffer:    {SNotDC, []Action{ALog}},
		IShutdown:     {SStopping, []Action{ALog, AShutdownReq}},
	},
	SPolicyEngine: {
		IPESuccess: {STransitionEngine, []Action{ALog, ATEInvoke}},
		ICIBUpdate: {SPolicyEngine, []Action{ALog, APEInvoke}},
		IShutdown:  {SStopping, []Action{ALog, AShutdownReq}},
	},
	STransitionEngine: {
		ITESuccess: {SIdle, []Action{ALog}},
		IFail:      {SPolicyEngine, []Action{ALog, ATECancel, APEInvoke}},
		ICIBUpdate: {SPolicyEngine, []Action{ALog, ATECancel, APEInvoke}},
		INodeLeft:  {SPolicyEngine, []Action{ALog, ATECancel, APEInvoke}},
		IShutdown:  {SStopping, []Action{ALog, ATECancel, AShutdownReq}},
	},
	SIdle: {
		ICIBUpdate: {SPolicyEngine, []Action{ALog, APEInvoke}},
		INodeJoin:  {SPolicyEngine, []Action{ALog, APEInvoke}},
		INodeLeft:  {SPolicyEngine, []Action{ALog, APEInvoke}},
		IShutdown:  {SStopping, []Action{ALog, AShutdownReq}},
	},
	SStopping: {
		ITESuccess: {STerminate, []Action{ALog, AExit0}},
		IStop:      {STerminate, []Action{ALog, AExit0}},
	},
	SRecovery: {
		IStartup: {SPending, []Action{ALog, ARecover}},
		IStop:    {STerminate, []Action{ALog, AExit1}},
	},
	SHalt: {
		IStop: {STerminate, []Action{ALog, AExit1}},
	},
}

// Machine is one controller's live FSM state. It carries no cluster data
// of its own; callers read the resulting Action slice and drive the rest
// of the system (internal/scheduler, internal/executor, internal/rpc).
type Machine struct {
	state State
}

// New returns a Machine in S_STARTING, the spec's initial state.
func New() *Machine {
	return &Machine{state: SStarting}
}

// State returns the machine's current state.
func (m *Machine) State() State { return m.state }

// Fire applies input to the machine, returning the new state and the
// fixed-priority-ordered action set the transition triggers. I_ERROR is
// handled uniformly from any non-terminal state before consulting the
// per-state table, per spec.md §4.7.
func (m *Machine) Fire(input Input) (State, []Action, error) {
	if input == IError && m.state != STerminate {
		m.state = SRecovery
		return m.state, orderActions([]Action{ALog, ARecover}), nil
	}

	row, ok := table[m.state]
	if !ok {
		return m.state, nil, fmt.Errorf("fsm: no transitions defined for state %s", m.state)
	}
	t, ok := row[input]
	if !ok {
		return m.state, nil, fmt.Errorf("fsm: input %s not valid in state %s", input, m.state)
	}
	m.state = t.next
	return m.state, orderActions(t.actions), nil
}

// orderActions returns a copy of actions sorted by the fixed priority
// table, stable among actions of equal priority.
func orderActions(actions []Action) []Action {
	out := append([]Action(nil), actions...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && actionPriority[out[j]] < actionPriority[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
