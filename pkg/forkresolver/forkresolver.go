// Package forkresolver implements the three-level deterministic ordering
// of spec.md §4.8: given two branches diverging from a common ancestor,
// pick the canonical one without ambiguity, anywhere the algorithm runs.
package forkresolver

import (
	"errors"
	"strings"
	"time"
)

// ErrNoEligibleBranch is returned when every candidate branch is
// eliminated for lacking an authorized watcher signature.
var ErrNoEligibleBranch = errors.New("forkresolver: no branch carries an authorized watcher signature")

// closeEnough is the window within which two branches' divergence
// timestamps are treated as simultaneous, per spec.md §4.8 rule 2.
const closeEnough = 5 * time.Minute

// Branch is one candidate history from a common ancestor.
type Branch struct {
	// ID identifies the branch for reporting; it plays no role in ordering.
	ID string

	// DivergenceTime is the timestamp of the first diverging receipt,
	// normalized to UTC whole seconds (callers should pass it through
	// pkg/canonicalize's timestamp normalization before calling Resolve).
	DivergenceTime time.Time

	// WatcherAttestations is the count of valid watcher attestations
	// covering this branch's head commitment.
	WatcherAttestations int

	// HeadDigest is this branch's head commitment digest, hex encoded, used
	// only as the final tiebreaker.
	HeadDigest string

	// AuthorizedWatcherSignature reports whether at least one signature on
	// this branch comes from a watcher in the authority registry. A branch
	// without one is eliminated before any ordering comparison.
	AuthorizedWatcherSignature bool
}

// Resolve picks the canonical branch among candidates. Branches lacking an
// authorized watcher signature are eliminated first; if none remain,
// ErrNoEligibleBranch is returned. Ties are broken as specified: earlier
// divergence timestamp wins, unless the two are within 5 minutes of each
// other, in which case more watcher attestations wins; any remaining tie
// falls to lexicographically smaller head digest.
func Resolve(candidates []Branch) (*Branch, error) {
	eligible := make([]Branch, 0, len(candidates))
	for _, b := range candidates {
		if b.AuthorizedWatcherSignature {
			eligible = append(eligible, b)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleBranch
	}

	best := eligible[0]
	for _, candidate := range eligible[1:] {
		if preferred(candidate, best) {
			best = candidate
		}
	}
	return &best, nil
}

// preferred reports whether a should be chosen over the current best b,
// applying the three-level ordering in sequence.
func preferred(a, b Branch) bool {
	delta := a.DivergenceTime.Sub(b.DivergenceTime)
	if delta < 0 {
		delta = -delta
	}

	if delta > closeEnough {
		return a.DivergenceTime.Before(b.DivergenceTime)
	}

	if a.WatcherAttestations != b.WatcherAttestations {
		return a.WatcherAttestations > b.WatcherAttestations
	}

	return strings.Compare(a.HeadDigest, b.HeadDigest) < 0
}
