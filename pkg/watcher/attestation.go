// Package watcher implements spec.md §4.15: watchers that monitor a
// corridor and attest to its head, a K-of-N quorum pool over those
// attestations with a dominant fork alarm, a stake/slash bond economy for
// watcher membership, and the 9-state dispute/arbitration flow built on
// top of pkg/lifecycle's typestate machines.
package watcher

import (
	"time"

	"github.com/corridorledger/substrate/pkg/canonicalize"
	"github.com/corridorledger/substrate/pkg/crypto"
	"github.com/corridorledger/substrate/pkg/lifecycle"
)

// Attestation is the signed claim a watcher issues about a corridor's
// observed head, per spec.md §4.15.
type Attestation struct {
	WatcherID        lifecycle.WatcherID `json:"watcher_id"`
	CorridorID       lifecycle.CorridorID `json:"corridor_id"`
	ObservedHead     string              `json:"observed_head"`
	ReceiptCount     uint64              `json:"receipt_count"`
	CheckpointDigest string              `json:"checkpoint_digest"`
	ObservedAt       time.Time           `json:"observed_at"`
	Signature        string              `json:"signature"`
	SignerPublicKey  string              `json:"signer_public_key"`
}

// headCommitment is the subset of an attestation's fields the
// head_commitment_digest is computed over. Timestamps are excluded
// deliberately, per spec.md §4.15, so that two watchers observing the
// identical head at different instants produce the same digest.
type headCommitment struct {
	CorridorID       lifecycle.CorridorID `json:"corridor_id"`
	ObservedHead     string              `json:"observed_head"`
	ReceiptCount     uint64              `json:"receipt_count"`
	CheckpointDigest string              `json:"checkpoint_digest"`
}

// HeadCommitmentDigest computes the deterministic, timestamp-free digest
// two attestations are compared by for deduplication and fork detection.
func (a Attestation) HeadCommitmentDigest() (string, error) {
	cb, err := canonicalize.Canonicalize(headCommitment{
		CorridorID:       a.CorridorID,
		ObservedHead:     a.ObservedHead,
		ReceiptCount:     a.ReceiptCount,
		CheckpointDigest: a.CheckpointDigest,
	})
	if err != nil {
		return "", err
	}
	return canonicalize.Digest(cb).String(), nil
}

// signingPayload is the exact byte sequence a watcher signs: the full
// attestation minus the signature fields themselves.
func (a Attestation) signingPayload() (canonicalize.CanonicalBytes, error) {
	cp := a
	cp.Signature = ""
	cp.SignerPublicKey = ""
	return canonicalize.Canonicalize(cp)
}

// Issue builds and signs an attestation for watcherID observing corridorID
// at the given head.
func Issue(signer crypto.Signer, watcherID lifecycle.WatcherID, corridorID lifecycle.CorridorID, observedHead string, receiptCount uint64, checkpointDigest string, observedAt time.Time) (*Attestation, error) {
	a := &Attestation{
		WatcherID:        watcherID,
		CorridorID:       corridorID,
		ObservedHead:     observedHead,
		ReceiptCount:     receiptCount,
		CheckpointDigest: checkpointDigest,
		ObservedAt:       observedAt,
	}
	cb, err := a.signingPayload()
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(cb)
	if err != nil {
		return nil, err
	}
	a.Signature = sig
	a.SignerPublicKey = signer.PublicKey()
	return a, nil
}

// Verify reports whether a's signature is valid over its own payload.
func (a Attestation) Verify() (bool, error) {
	cb, err := a.signingPayload()
	if err != nil {
		return false, err
	}
	return crypto.Verify(a.SignerPublicKey, a.Signature, cb)
}
