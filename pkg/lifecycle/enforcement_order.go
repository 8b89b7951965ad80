package lifecycle

import "time"

// EnforcementOrderState is the closed state set of spec.md §4.6/line 133:
// `Pending -> {InProgress -> Completed, Blocked (via appeal)}`; `cancel()`
// forbidden from `Blocked`. spec.md names the cancel() verb and its
// forbidden source state but not its target state; this implementation
// adds a terminal Cancelled state reachable from Pending and InProgress,
// recorded as an Open Question decision in DESIGN.md.
type EnforcementOrderState string

const (
	EnforcementOrderPending    EnforcementOrderState = "Pending"
	EnforcementOrderInProgress EnforcementOrderState = "InProgress"
	EnforcementOrderCompleted  EnforcementOrderState = "Completed"
	EnforcementOrderBlocked    EnforcementOrderState = "Blocked"
	EnforcementOrderCancelled  EnforcementOrderState = "Cancelled"
)

var enforcementOrderTable = TransitionTable[EnforcementOrderState]{
	EnforcementOrderPending:    {EnforcementOrderInProgress, EnforcementOrderBlocked, EnforcementOrderCancelled},
	EnforcementOrderInProgress: {EnforcementOrderCompleted, EnforcementOrderBlocked, EnforcementOrderCancelled},
	EnforcementOrderCompleted:  {},
	EnforcementOrderBlocked:    {EnforcementOrderInProgress},
	EnforcementOrderCancelled:  {},
}

// NewEnforcementOrderMachine returns a fresh enforcement order machine in
// Pending.
func NewEnforcementOrderMachine(clock func() time.Time) *Machine[EnforcementOrderState] {
	return NewMachine(EnforcementOrderPending, enforcementOrderTable, clock)
}
