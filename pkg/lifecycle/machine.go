// Package lifecycle implements the FSM discipline of spec.md
// §4.6: every corridor, entity, migration, license, watcher, enforcement
// order, and dispute lifecycle is a closed set of states and a closed set
// of transitions between them. Transitions are checked at run time, not
// by the compiler: an attempted transition outside the table compiles and
// fails with InvalidTransitionError; every accepted transition is appended to
// an append-only transition log and is irreversible except via a
// declared reverse transition.
package lifecycle

import (
	"fmt"
	"sync"
	"time"
)

// InvalidTransitionError reports an attempted transition not present in
// the machine's table.
type InvalidTransitionError[S comparable] struct {
	From S
	To   S
}

func (e *InvalidTransitionError[S]) Error() string {
	return fmt.Sprintf("lifecycle: invalid transition from %v to %v", e.From, e.To)
}

// TransitionTable maps each state to the set of states directly reachable
// from it.
type TransitionTable[S comparable] map[S][]S

func (t TransitionTable[S]) allows(from, to S) bool {
	for _, candidate := range t[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Record is one entry in a machine's append-only transition log.
type Record[S comparable] struct {
	From           S         `json:"from"`
	To             S         `json:"to"`
	Action         string    `json:"action"`
	EvidenceDigest string    `json:"evidence_digest,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Reason         string    `json:"reason,omitempty"`
}

// Machine is a generic FSM over a comparable state type S (an enum of
// string constants in every concrete usage in this module). The current
// state is a run-time value; Fire checks each transition against table.
type Machine[S comparable] struct {
	mu    sync.Mutex
	state S
	table TransitionTable[S]
	log   []Record[S]
	clock func() time.Time
}

// NewMachine constructs a machine starting at initial, governed by table.
// clock defaults to time.Now when nil; tests substitute a fixed clock.
func NewMachine[S comparable](initial S, table TransitionTable[S], clock func() time.Time) *Machine[S] {
	if clock == nil {
		clock = time.Now
	}
	return &Machine[S]{state: initial, table: table, clock: clock}
}

// State returns the machine's current state.
func (m *Machine[S]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Log returns a copy of the transition log recorded so far.
func (m *Machine[S]) Log() []Record[S] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record[S], len(m.log))
	copy(out, m.log)
	return out
}

// Fire attempts to move the machine from its current state to `to` via a
// named action. evidenceDigest and reason are recorded in the log
// verbatim; they are not validated here, since what counts as sufficient
// evidence is a caller-level (policy/orchestration) concern, not an FSM
// concern.
func (m *Machine[S]) Fire(action string, to S, evidenceDigest, reason string) (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.table.allows(m.state, to) {
		return m.state, &InvalidTransitionError[S]{From: m.state, To: to}
	}

	m.log = append(m.log, Record[S]{
		From:           m.state,
		To:             to,
		Action:         action,
		EvidenceDigest: evidenceDigest,
		Timestamp:      m.clock(),
		Reason:         reason,
	})
	m.state = to
	return to, nil
}

// CanFire reports whether `to` is reachable from the current state,
// without attempting the transition.
func (m *Machine[S]) CanFire(to S) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.allows(m.state, to)
}
