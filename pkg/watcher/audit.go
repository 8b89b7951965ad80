package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/corridorledger/substrate/pkg/canonicalize"
)

// Clock abstracts time for the audit trail so tests can substitute a fixed
// sequence of timestamps.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// AuditEntry is one hash-chained record of a bond, quorum, or dispute
// event: a stake, a slash, a quorum fork alarm, a dispute transition, an
// enforcement order transition.
type AuditEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Actor        string    `json:"actor"`
	Action       string    `json:"action"`
	Target       string    `json:"target"`
	Details      string    `json:"details,omitempty"`
	PreviousHash string    `json:"previous_hash"`
	Hash         string    `json:"hash"`
}

// AuditLog is the bond economy's append-only, tamper-evident event trail:
// every entry's hash commits to its own fields and the previous entry's
// hash, so any retroactive edit breaks the chain from that point forward.
type AuditLog struct {
	Entries []AuditEntry
	clock   Clock
}

// NewAuditLog creates a log. clock defaults to the wall clock when nil.
func NewAuditLog(clock Clock) *AuditLog {
	if clock == nil {
		clock = wallClock{}
	}
	return &AuditLog{Entries: make([]AuditEntry, 0), clock: clock}
}

// Append records one event, linking it to the chain's current head.
func (l *AuditLog) Append(actor, action, target, details string) (*AuditEntry, error) {
	prevHash := ""
	if len(l.Entries) > 0 {
		prevHash = l.Entries[len(l.Entries)-1].Hash
	}

	now := l.clock.Now()
	entry := AuditEntry{
		ID:           fmt.Sprintf("watcher-evt_%d", now.UnixNano()),
		Timestamp:    now.UTC(),
		Actor:        actor,
		Action:       action,
		Target:       target,
		Details:      details,
		PreviousHash: prevHash,
	}

	hash, err := computeEntryHash(&entry)
	if err != nil {
		return nil, err
	}
	entry.Hash = hash

	l.Entries = append(l.Entries, entry)
	return &entry, nil
}

// VerifyChain re-derives every entry's hash and link, failing at the
// first break.
func (l *AuditLog) VerifyChain() (bool, error) {
	if len(l.Entries) == 0 {
		return true, nil
	}
	for i, entry := range l.Entries {
		if i > 0 {
			if entry.PreviousHash != l.Entries[i-1].Hash {
				return false, fmt.Errorf("watcher: audit chain broken at index %d: previous hash mismatch", i)
			}
		} else if entry.PreviousHash != "" {
			return false, fmt.Errorf("watcher: audit chain genesis entry has non-empty previous hash")
		}

		computed, err := computeEntryHash(&entry)
		if err != nil {
			return false, fmt.Errorf("watcher: recomputing hash at index %d: %w", i, err)
		}
		if computed != entry.Hash {
			return false, fmt.Errorf("watcher: audit chain integrity failure at index %d", i)
		}
	}
	return true, nil
}

func computeEntryHash(e *AuditEntry) (string, error) {
	data := map[string]interface{}{
		"id":            e.ID,
		"timestamp":     e.Timestamp,
		"actor":         e.Actor,
		"action":        e.Action,
		"target":        e.Target,
		"details":       e.Details,
		"previous_hash": e.PreviousHash,
	}
	cb, err := canonicalize.JCS(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(cb)
	return hex.EncodeToString(sum[:]), nil
}
