package watcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/corridorledger/substrate/pkg/canonicalize"
	"github.com/corridorledger/substrate/pkg/credentials"
	"github.com/corridorledger/substrate/pkg/crypto"
	"github.com/corridorledger/substrate/pkg/interfaces"
	"github.com/corridorledger/substrate/pkg/lifecycle"
)

// SlashingEvidenceType is the VC type stamped on every slashing credential
// issued by Slash, so a verifier can filter the credential store for them
// without inspecting claims.
const SlashingEvidenceType = "WatcherSlashingEvidence"

// Bond tracks one watcher's stake and lifecycle state. Stake is denominated
// in whatever unit the corridor's bond economy uses; this package is
// agnostic to it beyond requiring it be strictly positive to (re)bond.
type Bond struct {
	WatcherID lifecycle.WatcherID
	Stake     float64
	Machine   *lifecycle.WatcherMachine
}

// Registry is the bond economy for one corridor's watcher pool: bonding,
// slashing, and rebonding. Slashing produces a content-addressed evidence
// VC per spec.md §4.15 ("slashing conditions are content-addressed
// evidence VCs"); bonding and rebonding issue no VC.
type Registry struct {
	mu     sync.Mutex
	bonds  map[lifecycle.WatcherID]*Bond
	signer crypto.Signer
	store  interfaces.ArtifactStore
	clock  func() time.Time
}

// NewRegistry constructs a bond registry. signer issues the evidence VCs
// backing slash transitions; store, when non-nil, persists them as
// artifacts.
func NewRegistry(signer crypto.Signer, store interfaces.ArtifactStore, clock func() time.Time) *Registry {
	if clock == nil {
		clock = time.Now
	}
	return &Registry{bonds: make(map[lifecycle.WatcherID]*Bond), signer: signer, store: store, clock: clock}
}

// ErrAlreadyBonded is returned by Bond when watcherID already has a bond.
var ErrAlreadyBonded = fmt.Errorf("watcher: watcher is already bonded")

// ErrNotBonded is returned by Slash/Rebond when watcherID has no bond.
var ErrNotBonded = fmt.Errorf("watcher: watcher has no bond")

// Bond stakes a new watcher, transitioning Bonding -> Active once stake is
// confirmed positive.
func (r *Registry) Bond(watcherID lifecycle.WatcherID, stake float64) (*Bond, error) {
	if stake <= 0 {
		return nil, lifecycle.ErrZeroStake
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bonds[watcherID]; exists {
		return nil, ErrAlreadyBonded
	}
	machine := lifecycle.NewWatcherMachine(r.clock)
	if _, err := machine.Fire("bond", lifecycle.WatcherActive, "", fmt.Sprintf("initial stake %.4f", stake)); err != nil {
		return nil, err
	}
	b := &Bond{WatcherID: watcherID, Stake: stake, Machine: machine}
	r.bonds[watcherID] = b
	return b, nil
}

// Slash transitions an Active watcher to Slashed, issuing and persisting a
// content-addressed evidence VC that binds the violation's reason and
// corridor to the watcher's key. The resulting ArtifactRef digest becomes
// the transition's evidence_digest in the watcher's lifecycle log.
func (r *Registry) Slash(watcherID lifecycle.WatcherID, corridorID lifecycle.CorridorID, reason string) (interfaces.ArtifactRef, error) {
	r.mu.Lock()
	b, ok := r.bonds[watcherID]
	r.mu.Unlock()
	if !ok {
		return interfaces.ArtifactRef{}, ErrNotBonded
	}

	cred := credentials.NewCredential(
		r.signer.PublicKey(),
		string(watcherID),
		[]string{SlashingEvidenceType},
		map[string]interface{}{
			"corridor_id": string(corridorID),
			"reason":      reason,
		},
		r.clock(),
	)
	if err := credentials.Sign(cred, r.signer, credentials.ProofTypeEd25519, "assertionMethod", r.clock()); err != nil {
		return interfaces.ArtifactRef{}, fmt.Errorf("watcher: signing slashing evidence: %w", err)
	}
	ref, err := cred.ToArtifactRef()
	if err != nil {
		return interfaces.ArtifactRef{}, err
	}
	if r.store != nil {
		cb, err := canonicalize.Canonicalize(cred)
		if err != nil {
			return interfaces.ArtifactRef{}, err
		}
		if _, err := r.store.Store(&interfaces.Artifact{Ref: ref, ContentType: "application/vc+json", CanonicalBytes: []byte(cb)}); err != nil {
			return interfaces.ArtifactRef{}, fmt.Errorf("watcher: persisting slashing evidence: %w", err)
		}
	}

	if _, err := b.Machine.Fire("slash", lifecycle.WatcherSlashed, ref.Digest, reason); err != nil {
		return interfaces.ArtifactRef{}, err
	}
	return ref, nil
}

// Rebond transitions a Slashed watcher back to Active, requiring a
// strictly positive new stake per spec.md §4.15.
func (r *Registry) Rebond(watcherID lifecycle.WatcherID, newStake float64, reason string) (*Bond, error) {
	r.mu.Lock()
	b, ok := r.bonds[watcherID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotBonded
	}
	evidenceDigest := fmt.Sprintf("rebond-stake:%.4f", newStake)
	if _, err := b.Machine.Rebond(newStake, evidenceDigest, reason); err != nil {
		return nil, err
	}
	r.mu.Lock()
	b.Stake = newStake
	r.mu.Unlock()
	return b, nil
}

// State reports a watcher's current lifecycle state.
func (r *Registry) State(watcherID lifecycle.WatcherID) (lifecycle.WatcherState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bonds[watcherID]
	if !ok {
		return "", ErrNotBonded
	}
	return b.Machine.State(), nil
}
