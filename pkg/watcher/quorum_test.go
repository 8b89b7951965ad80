package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/corridorledger/substrate/pkg/crypto"
	"github.com/corridorledger/substrate/pkg/lifecycle"
)

func mustSigner(t *testing.T) crypto.Signer {
	t.Helper()
	s, err := crypto.NewEd25519Signer("watcher-key")
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	return s
}

func TestPool_EvaluateSatisfiesQuorumOnAgreement(t *testing.T) {
	now := time.Unix(1000, 0).UTC()
	watchers := []lifecycle.WatcherID{"w-1", "w-2", "w-3"}
	pool, err := NewPool(watchers, 2, time.Minute, nil, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	for _, id := range watchers[:2] {
		signer := mustSigner(t)
		a, err := Issue(signer, id, "c-1", "head-X", 10, "ckpt-1", now.Add(-10*time.Second))
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if err := pool.Submit(context.Background(), *a); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	result, err := pool.Evaluate(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Satisfied {
		t.Fatal("expected quorum to be satisfied with 2 of 3 agreeing")
	}
	if result.ForkAlarm != nil {
		t.Fatalf("expected no fork alarm, got %+v", result.ForkAlarm)
	}
	if result.AgreeingWatchers != 2 {
		t.Fatalf("expected 2 agreeing watchers, got %d", result.AgreeingWatchers)
	}
}

func TestPool_EvaluateRaisesForkAlarmOnDisagreement(t *testing.T) {
	now := time.Unix(1000, 0).UTC()
	watchers := []lifecycle.WatcherID{"w-1", "w-2", "w-3"}
	pool, err := NewPool(watchers, 2, time.Minute, nil, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	a1, err := Issue(mustSigner(t), "w-1", "c-1", "head-X", 10, "ckpt-1", now.Add(-5*time.Second))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	a2, err := Issue(mustSigner(t), "w-2", "c-1", "head-Y", 10, "ckpt-2", now.Add(-5*time.Second))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := pool.Submit(context.Background(), *a1); err != nil {
		t.Fatalf("Submit a1: %v", err)
	}
	if err := pool.Submit(context.Background(), *a2); err != nil {
		t.Fatalf("Submit a2: %v", err)
	}

	result, err := pool.Evaluate(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.ForkAlarm == nil {
		t.Fatal("expected a fork alarm for disagreeing attestations at equal receipt_count")
	}
	if result.Satisfied {
		t.Fatal("a fork alarm must dominate any quorum outcome")
	}
}

func TestPool_SubmitRejectsUnauthorizedWatcher(t *testing.T) {
	pool, err := NewPool([]lifecycle.WatcherID{"w-1"}, 1, time.Minute, nil, nil)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	a, err := Issue(mustSigner(t), "w-unknown", "c-1", "head-X", 10, "ckpt-1", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := pool.Submit(context.Background(), *a); err == nil {
		t.Fatal("expected submission from an unauthorized watcher to be rejected")
	}
}

func TestPool_EvaluateExcludesStaleAttestations(t *testing.T) {
	now := time.Unix(1000, 0).UTC()
	pool, err := NewPool([]lifecycle.WatcherID{"w-1", "w-2"}, 2, 10*time.Second, nil, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	a1, err := Issue(mustSigner(t), "w-1", "c-1", "head-X", 10, "ckpt-1", now.Add(-5*time.Second))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	a2, err := Issue(mustSigner(t), "w-2", "c-1", "head-X", 10, "ckpt-1", now.Add(-60*time.Second))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := pool.Submit(context.Background(), *a1); err != nil {
		t.Fatalf("Submit a1: %v", err)
	}
	if err := pool.Submit(context.Background(), *a2); err != nil {
		t.Fatalf("Submit a2: %v", err)
	}

	result, err := pool.Evaluate(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Satisfied {
		t.Fatal("expected quorum to fail when only one of two required attestations is within the staleness window")
	}
}
