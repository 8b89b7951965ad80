// Package receipts implements the append-only receipt chain of spec.md
// §4.7: a corridor's sole mutation path. Every accepted receipt extends a
// hash chain (prev_root/next_root) and is simultaneously committed into a
// Merkle Mountain Range (pkg/mmr); both commitments must agree for the
// chain's head to be valid.
package receipts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/corridorledger/substrate/pkg/canonicalize"
	"github.com/corridorledger/substrate/pkg/mmr"
)

// ChainState is the closed set of states a receipt chain may be in.
type ChainState string

const (
	ChainActive    ChainState = "Active"
	ChainHalted    ChainState = "Halted"
	ChainArchived  ChainState = "Archived"
)

// Failure modes per spec.md §4.7's Append preconditions.
var (
	ErrChainNotActive    = errors.New("receipts: chain is not Active")
	ErrSequenceGap       = errors.New("receipts: sequence does not equal chain length")
	ErrPrevRootMismatch  = errors.New("receipts: prev_root does not match chain's current mmr_root")
	ErrInvalidPayload    = errors.New("receipts: payload failed schema validation")
)

// ReceiptProposal is the caller-supplied input to Append. Sequence and
// PrevRoot must match the chain's current state exactly; they are not
// inferred, so a caller cannot append without having observed the head.
type ReceiptProposal struct {
	Sequence  uint64          `json:"sequence"`
	PrevRoot  string          `json:"prev_root"`
	Payload   json.RawMessage `json:"payload"`
	IssuedAt  time.Time       `json:"issued_at"`
	Proposer  string          `json:"proposer"`
}

// ReceiptWithRoots is the frozen, appended form of a receipt: the
// proposal plus the roots it produced. Once returned by Append it is
// immutable.
type ReceiptWithRoots struct {
	Sequence   uint64          `json:"sequence"`
	PrevRoot   string          `json:"prev_root"`
	NextRoot   string          `json:"next_root"`
	MMRRoot    string          `json:"mmr_root"`
	MMRIndex   uint64          `json:"mmr_index"`
	Payload    json.RawMessage `json:"payload"`
	IssuedAt   time.Time       `json:"issued_at"`
	Proposer   string          `json:"proposer"`
	Digest     string          `json:"digest"`
}

// PayloadValidator is invoked before a proposal is admitted; it lets
// callers wire in schema validation (pkg/schema) without this package
// depending on it directly.
type PayloadValidator func(payload json.RawMessage) error

// Chain is a single corridor's append-only receipt log.
type Chain struct {
	mu        sync.Mutex
	state     ChainState
	receipts  []ReceiptWithRoots
	log       *mmr.MMR
	validator PayloadValidator
}

// NewChain returns a fresh, Active chain. validator may be nil to skip
// payload schema enforcement (e.g. in tests).
func NewChain(validator PayloadValidator) *Chain {
	return &Chain{
		state:     ChainActive,
		log:       mmr.New(),
		validator: validator,
	}
}

// Length returns the number of receipts appended so far — the sequence
// number the next Append must supply.
func (c *Chain) Length() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(c.receipts))
}

// MMRRoot returns the chain's current MMR root, hex-encoded.
func (c *Chain) MMRRoot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Root().Hex()
}

// State returns the chain's current lifecycle state.
func (c *Chain) State() ChainState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Halt transitions the chain out of Active, refusing all further Append
// calls. Halting is not itself reversible through this package (a
// corridor-level lifecycle transition, pkg/lifecycle, governs whether and
// how a halted chain may resume).
func (c *Chain) Halt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ChainHalted
}

// Append is the sole mutation path for a receipt chain. It enforces, in
// order: the chain must be Active; proposal.Sequence must equal the
// chain's current length; proposal.PrevRoot must equal the chain's
// current MMR root; and the payload must pass schema validation if a
// validator is configured. On success it computes next_root, appends the
// receipt to the MMR, and returns the frozen receipt.
func (c *Chain) Append(proposal ReceiptProposal) (*ReceiptWithRoots, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ChainActive {
		return nil, fmt.Errorf("%w: state=%s", ErrChainNotActive, c.state)
	}

	expectedSeq := uint64(len(c.receipts))
	if proposal.Sequence != expectedSeq {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrSequenceGap, proposal.Sequence, expectedSeq)
	}

	currentRoot := c.log.Root().Hex()
	if proposal.PrevRoot != currentRoot {
		return nil, fmt.Errorf("%w: got=%s want=%s", ErrPrevRootMismatch, proposal.PrevRoot, currentRoot)
	}

	if c.validator != nil {
		if err := c.validator(proposal.Payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}

	cb, err := canonicalize.Canonicalize(proposal)
	if err != nil {
		return nil, fmt.Errorf("receipts: canonicalize proposal failed: %w", err)
	}
	digest := canonicalize.Digest(cb)

	mmrIndex := c.log.LeafCount()
	nextRoot := c.log.Append([]byte(cb))

	receipt := ReceiptWithRoots{
		Sequence: proposal.Sequence,
		PrevRoot: proposal.PrevRoot,
		NextRoot: nextRoot.Hex(),
		MMRRoot:  c.log.Root().Hex(),
		MMRIndex: mmrIndex,
		Payload:  proposal.Payload,
		IssuedAt: proposal.IssuedAt,
		Proposer: proposal.Proposer,
		Digest:   digest.String(),
	}
	c.receipts = append(c.receipts, receipt)

	return &receipt, nil
}

// At returns the receipt appended at sequence, if any.
func (c *Chain) At(sequence uint64) (*ReceiptWithRoots, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sequence >= uint64(len(c.receipts)) {
		return nil, false
	}
	r := c.receipts[sequence]
	return &r, true
}

// InclusionProof returns an MMR inclusion proof for the receipt appended
// at sequence.
func (c *Chain) InclusionProof(sequence uint64) (*mmr.InclusionProof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sequence >= uint64(len(c.receipts)) {
		return nil, fmt.Errorf("receipts: sequence %d not found", sequence)
	}
	return c.log.Proof(sequence)
}

// Head is the chain's current commitment point: (sequence, next_root of
// the last receipt, mmr_root). Both commitments must agree for a
// checkpoint to be valid.
type Head struct {
	Sequence uint64 `json:"sequence"`
	NextRoot string `json:"next_root"`
	MMRRoot  string `json:"mmr_root"`
}

// Checkpoint is a signable snapshot of a chain's head plus the digest set
// of every receipt committed so far, per spec.md §4.7. A receipt becomes
// final once a checkpoint including it by mmr_root carries signatures
// satisfying the corridor's agreement threshold (pkg/credentials and
// pkg/crypto supply the signing/verification primitives; this package
// only assembles and records the signature set).
type Checkpoint struct {
	Head       Head               `json:"head"`
	Digests    []string           `json:"digests"`
	Signatures []CheckpointSigner `json:"signatures,omitempty"`
}

type CheckpointSigner struct {
	KeyID     string `json:"key_id"`
	Signature string `json:"signature"`
}

// Checkpoint assembles the current head and digest set. Callers sign the
// canonical bytes of the returned Checkpoint and attach the result via
// AddCheckpointSignature.
func (c *Chain) Checkpoint() *Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	var head Head
	digests := make([]string, len(c.receipts))
	for i, r := range c.receipts {
		digests[i] = r.Digest
		head = Head{Sequence: r.Sequence, NextRoot: r.NextRoot, MMRRoot: r.MMRRoot}
	}
	return &Checkpoint{Head: head, Digests: digests}
}

// AddCheckpointSignature appends a signature from an authorized
// checkpoint key. It performs no verification itself — that is the
// caller's responsibility via pkg/crypto — it only records the result.
func (cp *Checkpoint) AddCheckpointSignature(keyID, signature string) {
	cp.Signatures = append(cp.Signatures, CheckpointSigner{KeyID: keyID, Signature: signature})
}

// IsFinal reports whether cp carries at least threshold signatures,
// representing a corridor-agreement quorum over this checkpoint.
func (cp *Checkpoint) IsFinal(threshold int) bool {
	return len(cp.Signatures) >= threshold
}
