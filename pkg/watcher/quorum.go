package watcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/corridorledger/substrate/pkg/lifecycle"
)

// StalenessCache stores the most recent attestation per (corridor, watcher)
// pair and answers "which attestations are still within the staleness
// window". The in-memory implementation is the default; RedisCache is the
// optional shared backend named in SPEC_FULL.md for multi-instance pools.
type StalenessCache interface {
	Put(ctx context.Context, a Attestation) error
	Recent(ctx context.Context, corridorID lifecycle.CorridorID, maxAge time.Duration, now time.Time) ([]Attestation, error)
}

// InMemoryCache is a process-local StalenessCache, keyed by corridor then
// watcher, so a later attestation from the same watcher replaces its
// earlier one rather than accumulating history.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[lifecycle.CorridorID]map[lifecycle.WatcherID]Attestation
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{data: make(map[lifecycle.CorridorID]map[lifecycle.WatcherID]Attestation)}
}

func (c *InMemoryCache) Put(_ context.Context, a Attestation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byWatcher, ok := c.data[a.CorridorID]
	if !ok {
		byWatcher = make(map[lifecycle.WatcherID]Attestation)
		c.data[a.CorridorID] = byWatcher
	}
	byWatcher[a.WatcherID] = a
	return nil
}

func (c *InMemoryCache) Recent(_ context.Context, corridorID lifecycle.CorridorID, maxAge time.Duration, now time.Time) ([]Attestation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byWatcher := c.data[corridorID]
	out := make([]Attestation, 0, len(byWatcher))
	for _, a := range byWatcher {
		if now.Sub(a.ObservedAt) <= maxAge {
			out = append(out, a)
		}
	}
	return out, nil
}

// ForkAlarm reports a confirmed disagreement between watchers that have
// observed the same receipt_count but different final state.
type ForkAlarm struct {
	CorridorID   lifecycle.CorridorID
	ReceiptCount uint64
	Commitments  []string // distinct head_commitment_digest values observed at ReceiptCount
}

// QuorumResult is the outcome of evaluating one corridor's recent
// attestations against the pool's K-of-N and staleness requirements.
type QuorumResult struct {
	Satisfied        bool
	FinalStateRoot   string
	ReceiptCount     uint64
	AgreeingWatchers int
	ForkAlarm        *ForkAlarm
}

// Pool evaluates K-of-N quorum over the authorized watcher set for each
// corridor, using a StalenessCache to bound how old a contributing
// attestation may be.
type Pool struct {
	mu           sync.RWMutex
	authorized   map[lifecycle.WatcherID]bool
	k            int
	maxStaleness time.Duration
	cache        StalenessCache
	clock        func() time.Time
}

// ErrQuorumSizeInvalid is returned when k exceeds the authorized set or is
// non-positive.
var ErrQuorumSizeInvalid = fmt.Errorf("watcher: quorum k must be positive and no greater than the authorized set size")

// NewPool constructs a quorum pool requiring k-of-n agreement among the
// given authorized watchers within maxStaleness. cache defaults to an
// in-memory one when nil; clock defaults to time.Now.
func NewPool(authorized []lifecycle.WatcherID, k int, maxStaleness time.Duration, cache StalenessCache, clock func() time.Time) (*Pool, error) {
	if k <= 0 || k > len(authorized) {
		return nil, ErrQuorumSizeInvalid
	}
	set := make(map[lifecycle.WatcherID]bool, len(authorized))
	for _, w := range authorized {
		set[w] = true
	}
	if cache == nil {
		cache = NewInMemoryCache()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Pool{authorized: set, k: k, maxStaleness: maxStaleness, cache: cache, clock: clock}, nil
}

// IsAuthorized reports whether watcherID may contribute to this pool's
// quorum.
func (p *Pool) IsAuthorized(watcherID lifecycle.WatcherID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.authorized[watcherID]
}

// Submit records an attestation from an authorized watcher. Attestations
// from unauthorized watchers are rejected outright; they never count
// toward quorum or a fork alarm.
func (p *Pool) Submit(ctx context.Context, a Attestation) error {
	if !p.IsAuthorized(a.WatcherID) {
		return fmt.Errorf("watcher: %s is not an authorized watcher for this pool", a.WatcherID)
	}
	ok, err := a.Verify()
	if err != nil {
		return fmt.Errorf("watcher: verifying attestation signature: %w", err)
	}
	if !ok {
		return fmt.Errorf("watcher: attestation signature does not verify")
	}
	return p.cache.Put(ctx, a)
}

// Evaluate computes the current quorum result for a corridor: the
// dominant, deduplicated head commitment among non-stale attestations, or
// a fork alarm if two groups at equal receipt_count disagree.
func (p *Pool) Evaluate(ctx context.Context, corridorID lifecycle.CorridorID) (*QuorumResult, error) {
	recent, err := p.cache.Recent(ctx, corridorID, p.maxStaleness, p.clock())
	if err != nil {
		return nil, err
	}

	// Group by (receipt_count, head_commitment_digest); one vote per
	// watcher per group, latest attestation per watcher only (Recent
	// already enforces that via InMemoryCache's per-watcher keying).
	type groupKey struct {
		receiptCount uint64
		commitment   string
	}
	groups := make(map[groupKey]map[lifecycle.WatcherID]bool)
	for _, a := range recent {
		digest, err := a.HeadCommitmentDigest()
		if err != nil {
			return nil, err
		}
		key := groupKey{receiptCount: a.ReceiptCount, commitment: digest}
		voters, ok := groups[key]
		if !ok {
			voters = make(map[lifecycle.WatcherID]bool)
			groups[key] = voters
		}
		voters[a.WatcherID] = true
	}

	// Fork detection: any receipt_count with more than one distinct
	// commitment dominates any quorum outcome, per spec.md §4.15.
	byCount := make(map[uint64]map[string]bool)
	for key := range groups {
		set, ok := byCount[key.receiptCount]
		if !ok {
			set = make(map[string]bool)
			byCount[key.receiptCount] = set
		}
		set[key.commitment] = true
	}
	for count, commitments := range byCount {
		if len(commitments) > 1 {
			list := make([]string, 0, len(commitments))
			for c := range commitments {
				list = append(list, c)
			}
			sort.Strings(list)
			return &QuorumResult{ForkAlarm: &ForkAlarm{CorridorID: corridorID, ReceiptCount: count, Commitments: list}}, nil
		}
	}

	// No fork: find the best group meeting k-of-n, preferring the
	// highest receipt_count among tied winners.
	var best *groupKey
	var bestVoters int
	for key, voters := range groups {
		if len(voters) < p.k {
			continue
		}
		k := key
		if best == nil || key.receiptCount > best.receiptCount {
			best = &k
			bestVoters = len(voters)
		}
	}
	if best == nil {
		return &QuorumResult{Satisfied: false}, nil
	}
	return &QuorumResult{
		Satisfied:        true,
		FinalStateRoot:   best.commitment,
		ReceiptCount:     best.receiptCount,
		AgreeingWatchers: bestVoters,
	}, nil
}
