package compliance

import (
	"errors"
	"testing"
	"time"

	"github.com/corridorledger/substrate/pkg/interfaces"
)

func fixedCells(clock time.Time) *Tensor {
	tensor := NewTensor(func() time.Time { return clock })
	for _, d := range AllDomains {
		domain := d
		_ = tensor.RegisterEvaluator(domain, func(entityID, jurisdiction string) (Cell, error) {
			return Cell{State: StateCompliant}, nil
		})
	}
	return tensor
}

func applicableAll() map[Domain]bool {
	m := make(map[Domain]bool, len(AllDomains))
	for _, d := range AllDomains {
		m[d] = true
	}
	return m
}

func TestTensor_EvaluateAllDomainsCompliant(t *testing.T) {
	tensor := fixedCells(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	slice, err := tensor.Evaluate("entity-1", "US", applicableAll(), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(slice.Cells) != len(AllDomains) {
		t.Fatalf("expected %d cells, got %d", len(AllDomains), len(slice.Cells))
	}
	for _, d := range AllDomains {
		if slice.Cells[d].State != StateCompliant {
			t.Errorf("expected %s Compliant, got %s", d, slice.Cells[d].State)
		}
	}
}

func TestTensor_UndeclaredDomainFailsClosedToPending(t *testing.T) {
	tensor := NewTensor(nil)
	applicable := map[Domain]bool{DomainAML: true}
	_ = tensor.RegisterEvaluator(DomainAML, func(_, _ string) (Cell, error) {
		return Cell{State: StateCompliant}, nil
	})

	slice, err := tensor.Evaluate("entity-1", "US", applicable, nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if slice.Cells[DomainKYC].State != StatePending {
		t.Errorf("expected undeclared domain to fail closed to Pending, got %s", slice.Cells[DomainKYC].State)
	}
}

func TestTensor_UndeclaredDomainWithPolicyArtifactIsNotApplicable(t *testing.T) {
	tensor := NewTensor(nil)
	artifacts := map[Domain]*interfaces.ArtifactRef{
		DomainIP: {ArtifactType: interfaces.ArtifactRuleset, Digest: "sha256:aa"},
	}

	slice, err := tensor.Evaluate("entity-1", "US", nil, artifacts)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if slice.Cells[DomainIP].State != StateNotApplicable {
		t.Errorf("expected NotApplicable, got %s", slice.Cells[DomainIP].State)
	}
}

func TestTensor_ExemptWithoutPolicyArtifactFails(t *testing.T) {
	tensor := NewTensor(nil)
	_ = tensor.RegisterEvaluator(DomainTax, func(_, _ string) (Cell, error) {
		return Cell{State: StateExempt}, nil
	})
	applicable := map[Domain]bool{DomainTax: true}

	_, err := tensor.Evaluate("entity-1", "US", applicable, nil)
	if !errors.Is(err, ErrMissingPolicyArtifact) {
		t.Errorf("expected ErrMissingPolicyArtifact, got %v", err)
	}
}

func TestSlice_SanctionsNonCompliantIsHardBlock(t *testing.T) {
	slice := Slice{Cells: map[Domain]Cell{
		DomainSanctions: {Domain: DomainSanctions, State: StateNonCompliant, Reason: "matched OFAC SDN entry"},
	}}
	blocked, reason := slice.HardBlocked()
	if !blocked {
		t.Fatal("expected hard block")
	}
	if reason == "" {
		t.Error("expected a reason to be surfaced")
	}
}

func TestCommit_DeterministicAcrossCellInsertionOrder(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cellsA := map[Domain]Cell{
		DomainAML: {Domain: DomainAML, State: StateCompliant, Timestamp: ts},
		DomainKYC: {Domain: DomainKYC, State: StatePending, Timestamp: ts},
	}
	cellsB := map[Domain]Cell{
		DomainKYC: {Domain: DomainKYC, State: StatePending, Timestamp: ts},
		DomainAML: {Domain: DomainAML, State: StateCompliant, Timestamp: ts},
	}

	commitA, err := Commit(Slice{Cells: cellsA})
	if err != nil {
		t.Fatalf("Commit(A) failed: %v", err)
	}
	commitB, err := Commit(Slice{Cells: cellsB})
	if err != nil {
		t.Fatalf("Commit(B) failed: %v", err)
	}
	if commitA.Root != commitB.Root {
		t.Errorf("expected identical roots regardless of map insertion order, got %s vs %s", commitA.Root, commitB.Root)
	}
}

func TestCommit_DifferentStateChangesRoot(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := Slice{Cells: map[Domain]Cell{DomainAML: {Domain: DomainAML, State: StateCompliant, Timestamp: ts}}}
	changed := Slice{Cells: map[Domain]Cell{DomainAML: {Domain: DomainAML, State: StateNonCompliant, Timestamp: ts}}}

	c1, _ := Commit(base)
	c2, _ := Commit(changed)
	if c1.Root == c2.Root {
		t.Error("expected differing cell state to change the commitment root")
	}
}

func TestState_Lattice(t *testing.T) {
	if !StateNonCompliant.LessThan(StatePending) {
		t.Error("expected NonCompliant < Pending")
	}
	if !StatePending.LessThan(StateCompliant) {
		t.Error("expected Pending < Compliant")
	}
	if StateCompliant.LessThan(StateExempt) || StateExempt.LessThan(StateCompliant) {
		t.Error("expected Compliant and Exempt to be incomparable")
	}
}
