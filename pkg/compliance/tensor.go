package compliance

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/corridorledger/substrate/pkg/interfaces"
	"github.com/corridorledger/substrate/pkg/merkle"
)

// ErrMissingPolicyArtifact is returned when a domain evaluates to Exempt
// or NotApplicable without a signed policy artifact backing it, per
// spec.md §4.9's "in production, requires a signed policy artifact
// referenced in the tensor."
var ErrMissingPolicyArtifact = errors.New("compliance: exempt/not-applicable state requires a signed policy artifact")

// Attestation is one piece of supporting evidence behind a cell's state.
type Attestation struct {
	Digest   string    `json:"digest"`
	Issuer   string    `json:"issuer"`
	IssuedAt time.Time `json:"issued_at"`
}

// Cell is one domain's evaluation result, per spec.md §3.
type Cell struct {
	Domain        Domain        `json:"domain"`
	State         State         `json:"state"`
	Attestations  []Attestation `json:"attestations,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	Reason        string        `json:"reason,omitempty"`
	PolicyArtifact *interfaces.ArtifactRef `json:"policy_artifact,omitempty"`
}

// DomainEvaluator produces a Cell for one domain, given the entity and
// jurisdiction under evaluation. jurisdiction is an opaque identifier
// (the orchestration pipeline passes WriteRequest.Jurisdiction) so this
// package does not need to depend on how jurisdiction binding is computed.
type DomainEvaluator func(entityID, jurisdiction string) (Cell, error)

// Slice is a snapshot of every domain's evaluation for one
// (entity, jurisdiction) pair — the tensor's Evaluate output.
type Slice struct {
	EntityID     string          `json:"entity_id"`
	Jurisdiction string          `json:"jurisdiction"`
	Cells        map[Domain]Cell `json:"cells"`
	EvaluatedAt  time.Time       `json:"evaluated_at"`
}

// HardBlocked reports whether the Sanctions cell is NonCompliant, per
// spec.md §3's hard-block rule, and the cell's reason if so.
func (s Slice) HardBlocked() (blocked bool, reason string) {
	cell, ok := s.Cells[DomainSanctions]
	if !ok {
		return false, ""
	}
	return cell.State.IsHardBlock(DomainSanctions), cell.Reason
}

// Tensor holds one evaluator per domain and evaluates entities against
// the jurisdiction they are declared applicable in.
type Tensor struct {
	evaluators map[Domain]DomainEvaluator
	clock      func() time.Time
}

// NewTensor returns a Tensor with no evaluators registered. clock may be
// nil to use time.Now.
func NewTensor(clock func() time.Time) *Tensor {
	if clock == nil {
		clock = time.Now
	}
	return &Tensor{evaluators: make(map[Domain]DomainEvaluator), clock: clock}
}

// RegisterEvaluator binds an evaluator for domain, overwriting any
// previous registration. domain must be a member of AllDomains.
func (t *Tensor) RegisterEvaluator(domain Domain, eval DomainEvaluator) error {
	if !domain.IsValid() {
		return fmt.Errorf("compliance: %q is not a recognized domain", domain)
	}
	t.evaluators[domain] = eval
	return nil
}

// Evaluate computes a Slice across all 20 domains. applicable declares
// which domains apply to this entity/jurisdiction pair; a domain absent
// from applicable (or explicitly false) is undeclared and receives
// NotApplicable, gated on policyArtifacts carrying a backing artifact —
// if none is present, evaluation fails closed to Pending rather than
// erroring, per spec.md §4.9.
func (t *Tensor) Evaluate(entityID, jurisdiction string, applicable map[Domain]bool, policyArtifacts map[Domain]*interfaces.ArtifactRef) (Slice, error) {
	now := t.clock()
	cells := make(map[Domain]Cell, len(AllDomains))

	for _, domain := range AllDomains {
		if applicable[domain] {
			eval, ok := t.evaluators[domain]
			if !ok {
				return Slice{}, fmt.Errorf("compliance: no evaluator registered for applicable domain %s", domain)
			}
			cell, err := eval(entityID, jurisdiction)
			if err != nil {
				return Slice{}, fmt.Errorf("compliance: evaluating domain %s: %w", domain, err)
			}
			cell.Domain = domain
			if cell.Timestamp.IsZero() {
				cell.Timestamp = now
			}
			if err := requirePolicyIfNeeded(cell); err != nil {
				return Slice{}, fmt.Errorf("compliance: domain %s: %w", domain, err)
			}
			cells[domain] = cell
			continue
		}

		if artifact := policyArtifacts[domain]; artifact != nil {
			cells[domain] = Cell{
				Domain:         domain,
				State:          StateNotApplicable,
				Timestamp:      now,
				PolicyArtifact: artifact,
				Reason:         "undeclared domain backed by signed policy artifact",
			}
			continue
		}

		// No policy artifact backs the undeclared domain: fail closed to
		// Pending rather than silently granting NotApplicable.
		cells[domain] = Cell{
			Domain:    domain,
			State:     StatePending,
			Timestamp: now,
			Reason:    "undeclared domain with no backing policy artifact; failed closed",
		}
	}

	return Slice{
		EntityID:     entityID,
		Jurisdiction: jurisdiction,
		Cells:        cells,
		EvaluatedAt:  now,
	}, nil
}

// requirePolicyIfNeeded enforces that an evaluator-produced Exempt or
// NotApplicable cell carries a policy artifact, per spec.md §3.
func requirePolicyIfNeeded(cell Cell) error {
	if cell.State != StateExempt && cell.State != StateNotApplicable {
		return nil
	}
	if cell.PolicyArtifact == nil || cell.PolicyArtifact.Digest == "" {
		return ErrMissingPolicyArtifact
	}
	return nil
}

// TensorCommitment is the Merkle root over a Slice's cells, sorted by
// domain tag.
type TensorCommitment struct {
	Root    string   `json:"root"`
	Domains []Domain `json:"domains"`
}

// Commit builds the commitment for slice: sort cells by domain tag,
// canonicalize each, hash, and build a Merkle tree over the sorted
// leaves (pkg/merkle, keyed by domain tag as the leaf path).
func Commit(slice Slice) (*TensorCommitment, error) {
	domains := make([]Domain, 0, len(slice.Cells))
	for d := range slice.Cells {
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i] < domains[j] })

	leaves := make(map[string]interface{}, len(domains))
	for _, d := range domains {
		leaves[string(d)] = slice.Cells[d]
	}

	tree, err := merkle.BuildMerkleTree(leaves)
	if err != nil {
		return nil, fmt.Errorf("compliance: commit failed: %w", err)
	}

	return &TensorCommitment{Root: tree.Root, Domains: domains}, nil
}
