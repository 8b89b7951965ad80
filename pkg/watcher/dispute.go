package watcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/corridorledger/substrate/pkg/interfaces"
	"github.com/corridorledger/substrate/pkg/lifecycle"
)

// EscrowState is the optional hold spec.md §4.15 allows a dispute to carry,
// released only once ReleaseCondition is satisfied.
type EscrowState struct {
	Held             bool
	Amount           float64
	ReleaseCondition string
	ReleasedAt       *time.Time
}

// Dispute is one arbitration case: a 9-state FSM (pkg/lifecycle's
// DisputeMachine) plus the evidence package and optional escrow spec.md
// §4.15 names alongside it.
type Dispute struct {
	ID         lifecycle.DisputeID
	CorridorID lifecycle.CorridorID
	Machine    *lifecycle.Machine[lifecycle.DisputeState]
	Evidence   []interfaces.ArtifactRef
	Escrow     *EscrowState
}

// DisputeRegistry tracks open disputes per corridor. Escalator, when set,
// gates how fast one entity may file new disputes, per
// FilingEscalator's ladder.
type DisputeRegistry struct {
	mu        sync.Mutex
	disputes  map[lifecycle.DisputeID]*Dispute
	clock     func() time.Time
	Escalator *FilingEscalator
}

func NewDisputeRegistry(clock func() time.Time) *DisputeRegistry {
	if clock == nil {
		clock = time.Now
	}
	return &DisputeRegistry{disputes: make(map[lifecycle.DisputeID]*Dispute), clock: clock}
}

// FileByEntity is File with abuse throttling: entityID's filing rate is
// checked against r.Escalator (when set) before the dispute is opened.
func (r *DisputeRegistry) FileByEntity(entityID string, corridorID lifecycle.CorridorID, initialEvidence []interfaces.ArtifactRef) (*Dispute, error) {
	if r.Escalator != nil {
		if _, err := r.Escalator.Admit(entityID); err != nil {
			return nil, err
		}
	}
	return r.File(corridorID, initialEvidence), nil
}

// File opens a new dispute in the Filed state with an initial, possibly
// empty, evidence package.
func (r *DisputeRegistry) File(corridorID lifecycle.CorridorID, initialEvidence []interfaces.ArtifactRef) *Dispute {
	d := &Dispute{
		ID:         lifecycle.NewDisputeID(),
		CorridorID: corridorID,
		Machine:    lifecycle.NewDisputeMachine(r.clock),
		Evidence:   append([]interfaces.ArtifactRef(nil), initialEvidence...),
	}
	r.mu.Lock()
	r.disputes[d.ID] = d
	r.mu.Unlock()
	return d
}

// Get returns a previously filed dispute.
func (r *DisputeRegistry) Get(id lifecycle.DisputeID) (*Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, fmt.Errorf("watcher: no dispute %s", id)
	}
	return d, nil
}

// AddEvidence appends artifact refs to a dispute's evidence package. It
// does not itself transition the dispute's state; callers gate the
// EvidenceGathering -> UnderReview transition on whatever evidence
// requirement set applies (see evidence.go).
func (d *Dispute) AddEvidence(refs ...interfaces.ArtifactRef) {
	d.Evidence = append(d.Evidence, refs...)
}

// Advance fires a named transition on the dispute's machine.
func (d *Dispute) Advance(action string, to lifecycle.DisputeState, evidenceDigest, reason string) (lifecycle.DisputeState, error) {
	return d.Machine.Fire(action, to, evidenceDigest, reason)
}

// OpenEscrow places a hold on the dispute, released only once
// ReleaseCondition is externally satisfied and ReleaseEscrow is called.
func (d *Dispute) OpenEscrow(amount float64, releaseCondition string) {
	d.Escrow = &EscrowState{Held: true, Amount: amount, ReleaseCondition: releaseCondition}
}

// ErrNoEscrow is returned by ReleaseEscrow when the dispute carries none.
var ErrNoEscrow = fmt.Errorf("watcher: dispute has no escrow to release")

// ReleaseEscrow releases a dispute's escrow at releasedAt. Callers are
// responsible for having verified ReleaseCondition before calling this;
// the escrow model itself does not interpret the condition string.
func (d *Dispute) ReleaseEscrow(releasedAt time.Time) error {
	if d.Escrow == nil || !d.Escrow.Held {
		return ErrNoEscrow
	}
	d.Escrow.Held = false
	d.Escrow.ReleasedAt = &releasedAt
	return nil
}
