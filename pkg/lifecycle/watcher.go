package lifecycle

import (
	"errors"
	"time"
)

// WatcherState is the closed state set of spec.md §4.6/line 131:
// `Bonding -> Active -> {Slashed, Unbonding}`.
type WatcherState string

const (
	WatcherBonding   WatcherState = "Bonding"
	WatcherActive    WatcherState = "Active"
	WatcherSlashed   WatcherState = "Slashed"
	WatcherUnbonding WatcherState = "Unbonding"
)

var watcherTable = TransitionTable[WatcherState]{
	WatcherBonding:   {WatcherActive},
	WatcherActive:    {WatcherSlashed, WatcherUnbonding},
	WatcherSlashed:   {WatcherActive},
	WatcherUnbonding: {},
}

// ErrZeroStake is returned by Rebond when the proposed stake is not
// positive, per spec.md's "requires stake > 0" clause.
var ErrZeroStake = errors.New("lifecycle: rebond requires a non-zero stake")

// WatcherMachine wraps the generic machine with rebond()'s stake
// precondition, which the transition table cannot express.
type WatcherMachine struct {
	*Machine[WatcherState]
}

// NewWatcherMachine returns a fresh watcher lifecycle machine in Bonding.
func NewWatcherMachine(clock func() time.Time) *WatcherMachine {
	return &WatcherMachine{Machine: NewMachine(WatcherBonding, watcherTable, clock)}
}

// Rebond transitions Slashed -> Active, symmetric with initial bonding,
// provided stake is strictly positive.
func (w *WatcherMachine) Rebond(stake float64, evidenceDigest, reason string) (WatcherState, error) {
	if stake <= 0 {
		return w.State(), ErrZeroStake
	}
	return w.Fire("rebond", WatcherActive, evidenceDigest, reason)
}
