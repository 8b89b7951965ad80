package watcher

import (
	"testing"
	"time"

	"github.com/corridorledger/substrate/pkg/crypto"
	"github.com/corridorledger/substrate/pkg/lifecycle"
)

func TestIssue_ProducesVerifiableAttestation(t *testing.T) {
	signer, err := crypto.NewEd25519Signer("watcher-key")
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}

	a, err := Issue(signer, lifecycle.WatcherID("w-1"), lifecycle.CorridorID("c-1"), "head-abc", 10, "ckpt-1", time.Unix(100, 0).UTC())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ok, err := a.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected a freshly issued attestation to verify")
	}
}

func TestHeadCommitmentDigest_IgnoresTimestamp(t *testing.T) {
	signer, err := crypto.NewEd25519Signer("watcher-key")
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}

	a1, err := Issue(signer, lifecycle.WatcherID("w-1"), lifecycle.CorridorID("c-1"), "head-abc", 10, "ckpt-1", time.Unix(100, 0).UTC())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	a2, err := Issue(signer, lifecycle.WatcherID("w-2"), lifecycle.CorridorID("c-1"), "head-abc", 10, "ckpt-1", time.Unix(200, 0).UTC())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	d1, err := a1.HeadCommitmentDigest()
	if err != nil {
		t.Fatalf("HeadCommitmentDigest: %v", err)
	}
	d2, err := a2.HeadCommitmentDigest()
	if err != nil {
		t.Fatalf("HeadCommitmentDigest: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("expected identical heads observed at different times to dedupe, got %s != %s", d1, d2)
	}
}

func TestVerify_RejectsTamperedAttestation(t *testing.T) {
	signer, err := crypto.NewEd25519Signer("watcher-key")
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	a, err := Issue(signer, lifecycle.WatcherID("w-1"), lifecycle.CorridorID("c-1"), "head-abc", 10, "ckpt-1", time.Unix(100, 0).UTC())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	a.ReceiptCount = 11
	ok, err := a.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected a tampered attestation to fail verification")
	}
}
