package lifecycle

import "time"

// CorridorState is the closed state set of spec.md §4.6's corridor FSM.
type CorridorState string

const (
	CorridorDraft      CorridorState = "Draft"
	CorridorPending    CorridorState = "Pending"
	CorridorActive     CorridorState = "Active"
	CorridorHalted     CorridorState = "Halted"
	CorridorSuspended  CorridorState = "Suspended"
	CorridorDeprecated CorridorState = "Deprecated"
)

// corridorTable encodes: Draft -> Pending (submit) -> Active (activate) ->
// {Halted (halt) -> Deprecated (deprecate)} | {Suspended (suspend) <->
// Active (resume)}. Deprecated is terminal.
var corridorTable = TransitionTable[CorridorState]{
	CorridorDraft:     {CorridorPending},
	CorridorPending:   {CorridorActive},
	CorridorActive:    {CorridorHalted, CorridorSuspended},
	CorridorHalted:    {CorridorDeprecated},
	CorridorSuspended: {CorridorActive},
	CorridorDeprecated: {},
}

// NewCorridorMachine returns a fresh corridor lifecycle machine in Draft.
// clock may be nil to use time.Now.
func NewCorridorMachine(clock func() time.Time) *Machine[CorridorState] {
	return NewMachine(CorridorDraft, corridorTable, clock)
}
