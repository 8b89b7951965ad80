// Package mmr implements an append-only Merkle Mountain Range with
// bit-exact, domain-separated hashing per spec.md §4.3: leaf_hash =
// SHA256(0x00 || bytes), node_hash = SHA256(0x01 || left || right). Roots
// are computed by bagging peaks right-to-left. This is the append log
// backing the receipt chain (pkg/receipts); it is distinct from
// pkg/merkle, which rebuilds a fixed tree from a full leaf set each time
// for the compliance tensor commitment.
package mmr

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// ErrLeafIndexOutOfRange is returned by Proof for an index beyond the
// current leaf count.
var ErrLeafIndexOutOfRange = errors.New("mmr: leaf index out of range")

// Digest is a bare 32-byte SHA-256 digest, used internally for hash
// arithmetic; proofs and roots serialize it as lowercase hex.
type Digest [sha256.Size]byte

func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

func digestFromHex(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("mmr: invalid hex digest %q: %w", s, err)
	}
	if len(b) != sha256.Size {
		return d, fmt.Errorf("mmr: digest %q has wrong length %d", s, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// LeafHash computes the domain-separated leaf hash of raw bytes.
func LeafHash(data []byte) Digest {
	h := sha256.New()
	h.Write([]byte{leafPrefix})
	h.Write(data)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// NodeHash computes the domain-separated internal-node hash of two child
// digests, left before right.
func NodeHash(left, right Digest) Digest {
	h := sha256.New()
	h.Write([]byte{nodePrefix})
	h.Write(left[:])
	h.Write(right[:])
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// node is an internal MMR tree node: a leaf (height 0, no children) or a
// merge of two same-height peaks.
type node struct {
	hash        Digest
	height      int
	left, right *node
}

// MMR is an append-only Merkle Mountain Range over leaf byte strings,
// 0-indexed.
type MMR struct {
	peaks     []*node // left-to-right, strictly decreasing height
	leafNodes []*node // leafNodes[i] is the node for leaf i
}

// New returns an empty MMR.
func New() *MMR {
	return &MMR{}
}

// LeafCount returns the number of leaves appended so far.
func (m *MMR) LeafCount() uint64 {
	return uint64(len(m.leafNodes))
}

// Append adds a new leaf and returns the MMR's new root. The root depends
// only on the sequence and content of leaves appended so far.
func (m *MMR) Append(leaf []byte) Digest {
	n := &node{hash: LeafHash(leaf), height: 0}
	m.leafNodes = append(m.leafNodes, n)
	m.peaks = append(m.peaks, n)

	for len(m.peaks) >= 2 {
		last := m.peaks[len(m.peaks)-1]
		prev := m.peaks[len(m.peaks)-2]
		if last.height != prev.height {
			break
		}
		merged := &node{
			hash:   NodeHash(prev.hash, last.hash),
			height: prev.height + 1,
			left:   prev,
			right:  last,
		}
		m.peaks = m.peaks[:len(m.peaks)-2]
		m.peaks = append(m.peaks, merged)
	}

	return m.Root()
}

// Root bags the current peaks right-to-left into a single root digest. An
// empty MMR's root is the all-zero digest.
func (m *MMR) Root() Digest {
	return bagPeaks(peakHashes(m.peaks))
}

func peakHashes(peaks []*node) []Digest {
	hashes := make([]Digest, len(peaks))
	for i, p := range peaks {
		hashes[i] = p.hash
	}
	return hashes
}

// bagPeaks folds peaks right-to-left: acc starts at the rightmost peak,
// then each peak moving left is combined as NodeHash(peak, acc).
func bagPeaks(peaks []Digest) Digest {
	if len(peaks) == 0 {
		return Digest{}
	}
	acc := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		acc = NodeHash(peaks[i], acc)
	}
	return acc
}

// ProofStep is one step on the path from a leaf to the root of its
// containing peak.
type ProofStep struct {
	Side        string `json:"side"` // "L" or "R": which side the sibling sits on
	SiblingHash string `json:"sibling_hash"`
}

// InclusionProof lets a verifier, holding only the root, confirm that leaf
// was included at LeafIndex.
type InclusionProof struct {
	LeafIndex  uint64      `json:"leaf_index"`
	LeafHash   string      `json:"leaf_hash"`
	Steps      []ProofStep `json:"steps"`
	PeakHashes []string    `json:"peak_hashes"` // all peaks at proof time, left-to-right
	PeakIndex  int         `json:"peak_index"`  // which peak contains this leaf
	Root       string      `json:"root"`
}

// Proof builds an InclusionProof for the leaf at index, as of the MMR's
// current state.
func (m *MMR) Proof(index uint64) (*InclusionProof, error) {
	if index >= uint64(len(m.leafNodes)) {
		return nil, ErrLeafIndexOutOfRange
	}
	target := m.leafNodes[index]

	var peakIdx int
	var steps []ProofStep
	found := false
	for i, peak := range m.peaks {
		if path, ok := findPath(peak, target); ok {
			peakIdx = i
			steps = path
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("mmr: internal inconsistency: leaf %d not found under any peak", index)
	}

	return &InclusionProof{
		LeafIndex:  index,
		LeafHash:   target.hash.Hex(),
		Steps:      steps,
		PeakHashes: hexSlice(peakHashes(m.peaks)),
		PeakIndex:  peakIdx,
		Root:       m.Root().Hex(),
	}, nil
}

// findPath searches n's subtree for target, returning the sibling path
// from target up to n (n itself excluded), innermost step first.
func findPath(n, target *node) ([]ProofStep, bool) {
	if n == target {
		return nil, true
	}
	if n.left == nil || n.right == nil {
		return nil, false
	}
	if path, ok := findPath(n.left, target); ok {
		return append(path, ProofStep{Side: "R", SiblingHash: n.right.hash.Hex()}), true
	}
	if path, ok := findPath(n.right, target); ok {
		return append(path, ProofStep{Side: "L", SiblingHash: n.left.hash.Hex()}), true
	}
	return nil, false
}

func hexSlice(ds []Digest) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Hex()
	}
	return out
}

// Verify checks proof against expectedRoot without needing the live MMR:
// it replays Steps from the leaf up to the peak, substitutes the result
// into PeakHashes at PeakIndex, then re-bags all peaks.
func Verify(leaf []byte, proof *InclusionProof, expectedRoot string) (bool, error) {
	leafHash := LeafHash(leaf)
	if leafHash.Hex() != proof.LeafHash {
		return false, nil
	}
	if proof.PeakIndex < 0 || proof.PeakIndex >= len(proof.PeakHashes) {
		return false, fmt.Errorf("mmr: peak index %d out of range (%d peaks)", proof.PeakIndex, len(proof.PeakHashes))
	}

	current := leafHash
	for _, step := range proof.Steps {
		sibling, err := digestFromHex(step.SiblingHash)
		if err != nil {
			return false, err
		}
		switch step.Side {
		case "L":
			current = NodeHash(sibling, current)
		case "R":
			current = NodeHash(current, sibling)
		default:
			return false, fmt.Errorf("mmr: unrecognized proof side %q", step.Side)
		}
	}

	peaks := make([]Digest, len(proof.PeakHashes))
	for i, h := range proof.PeakHashes {
		if i == proof.PeakIndex {
			peaks[i] = current
			continue
		}
		d, err := digestFromHex(h)
		if err != nil {
			return false, err
		}
		peaks[i] = d
	}

	root := bagPeaks(peaks)
	return root.Hex() == expectedRoot, nil
}
