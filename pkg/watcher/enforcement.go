package watcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/corridorledger/substrate/pkg/lifecycle"
)

// EnforcementOrder is one order issued out of a resolved dispute: Pending
// -> InProgress -> Completed, with Blocked reachable from either for an
// appeal, and cancellation forbidden once Blocked (enforced by
// pkg/lifecycle's enforcement order transition table itself).
type EnforcementOrder struct {
	ID         lifecycle.EnforcementOrderID
	DisputeID  lifecycle.DisputeID
	CorridorID lifecycle.CorridorID
	Machine    *lifecycle.Machine[lifecycle.EnforcementOrderState]
}

// EnforcementRegistry tracks enforcement orders issued across disputes.
type EnforcementRegistry struct {
	mu     sync.Mutex
	orders map[lifecycle.EnforcementOrderID]*EnforcementOrder
	clock  func() time.Time
}

func NewEnforcementRegistry(clock func() time.Time) *EnforcementRegistry {
	if clock == nil {
		clock = time.Now
	}
	return &EnforcementRegistry{orders: make(map[lifecycle.EnforcementOrderID]*EnforcementOrder), clock: clock}
}

// Issue opens a new enforcement order in Pending against disputeID.
func (r *EnforcementRegistry) Issue(disputeID lifecycle.DisputeID, corridorID lifecycle.CorridorID) *EnforcementOrder {
	o := &EnforcementOrder{
		ID:         lifecycle.NewEnforcementOrderID(),
		DisputeID:  disputeID,
		CorridorID: corridorID,
		Machine:    lifecycle.NewEnforcementOrderMachine(r.clock),
	}
	r.mu.Lock()
	r.orders[o.ID] = o
	r.mu.Unlock()
	return o
}

func (r *EnforcementRegistry) Get(id lifecycle.EnforcementOrderID) (*EnforcementOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("watcher: no enforcement order %s", id)
	}
	return o, nil
}

// Start moves an order from Pending to InProgress.
func (o *EnforcementOrder) Start(reason string) (lifecycle.EnforcementOrderState, error) {
	return o.Machine.Fire("start", lifecycle.EnforcementOrderInProgress, "", reason)
}

// Complete moves an order from InProgress to Completed.
func (o *EnforcementOrder) Complete(evidenceDigest, reason string) (lifecycle.EnforcementOrderState, error) {
	return o.Machine.Fire("complete", lifecycle.EnforcementOrderCompleted, evidenceDigest, reason)
}

// Block moves an order to Blocked on appeal, from Pending or InProgress.
func (o *EnforcementOrder) Block(reason string) (lifecycle.EnforcementOrderState, error) {
	return o.Machine.Fire("block", lifecycle.EnforcementOrderBlocked, "", reason)
}

// Resume moves a Blocked order back to InProgress once the appeal clears.
func (o *EnforcementOrder) Resume(reason string) (lifecycle.EnforcementOrderState, error) {
	return o.Machine.Fire("resume", lifecycle.EnforcementOrderInProgress, "", reason)
}

// Cancel moves an order to Cancelled. Firing this from Blocked always
// fails: the transition table has no Blocked -> Cancelled edge, so
// cancellation is structurally forbidden once an order is blocked, per
// spec.md §4.15, without this method needing its own guard.
func (o *EnforcementOrder) Cancel(reason string) (lifecycle.EnforcementOrderState, error) {
	return o.Machine.Fire("cancel", lifecycle.EnforcementOrderCancelled, "", reason)
}
