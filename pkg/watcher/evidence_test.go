package watcher

import (
	"testing"

	"github.com/corridorledger/substrate/pkg/interfaces"
)

func TestEvidenceEvaluator_ANDRequiresAll(t *testing.T) {
	eval, err := NewEvidenceEvaluator()
	if err != nil {
		t.Fatalf("NewEvidenceEvaluator: %v", err)
	}
	set := EvidenceRequirementSet{
		Logic: EvidenceAND,
		Requirements: []EvidenceRequirement{
			{ID: "has-evidence-artifact", ArtifactType: interfaces.ArtifactRuleEvalEvidence},
			{ID: "amount-disputed-exceeds-threshold", Expression: `evidence.amount_disputed > 100.0`},
		},
	}
	artifacts := []interfaces.ArtifactRef{{ArtifactType: interfaces.ArtifactRuleEvalEvidence, Digest: "sha256:aaaa"}}

	ok, err := eval.Satisfies(set, artifacts, map[string]interface{}{"amount_disputed": 150.0})
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if !ok {
		t.Fatal("expected AND set to be satisfied when both requirements hold")
	}

	ok, err = eval.Satisfies(set, artifacts, map[string]interface{}{"amount_disputed": 10.0})
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if ok {
		t.Fatal("expected AND set to fail when the CEL requirement does not hold")
	}
}

func TestEvidenceEvaluator_ORSatisfiedByEitherBranch(t *testing.T) {
	eval, err := NewEvidenceEvaluator()
	if err != nil {
		t.Fatalf("NewEvidenceEvaluator: %v", err)
	}
	set := EvidenceRequirementSet{
		Logic: EvidenceOR,
		Requirements: []EvidenceRequirement{
			{ID: "has-checkpoint", ArtifactType: interfaces.ArtifactCheckpoint},
			{ID: "has-evidence", ArtifactType: interfaces.ArtifactRuleEvalEvidence},
		},
	}
	artifacts := []interfaces.ArtifactRef{{ArtifactType: interfaces.ArtifactRuleEvalEvidence, Digest: "sha256:aaaa"}}

	ok, err := eval.Satisfies(set, artifacts, nil)
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if !ok {
		t.Fatal("expected OR set to be satisfied when one branch holds")
	}
}

func TestEvidenceEvaluator_EmptySetAlwaysSatisfied(t *testing.T) {
	eval, err := NewEvidenceEvaluator()
	if err != nil {
		t.Fatalf("NewEvidenceEvaluator: %v", err)
	}
	ok, err := eval.Satisfies(EvidenceRequirementSet{}, nil, nil)
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if !ok {
		t.Fatal("expected an empty requirement set to always pass")
	}
}

func TestEvidenceEvaluator_NestedChildren(t *testing.T) {
	eval, err := NewEvidenceEvaluator()
	if err != nil {
		t.Fatalf("NewEvidenceEvaluator: %v", err)
	}
	set := EvidenceRequirementSet{
		Logic: EvidenceAND,
		Requirements: []EvidenceRequirement{
			{ID: "has-evidence", ArtifactType: interfaces.ArtifactRuleEvalEvidence},
		},
		Children: []EvidenceRequirementSet{
			{
				Logic: EvidenceOR,
				Requirements: []EvidenceRequirement{
					{ID: "escalated", Expression: `evidence.escalated == true`},
					{ID: "high-value", Expression: `evidence.amount_disputed > 1000.0`},
				},
			},
		},
	}
	artifacts := []interfaces.ArtifactRef{{ArtifactType: interfaces.ArtifactRuleEvalEvidence, Digest: "sha256:aaaa"}}

	ok, err := eval.Satisfies(set, artifacts, map[string]interface{}{"escalated": true, "amount_disputed": 10.0})
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if !ok {
		t.Fatal("expected nested OR child to satisfy the outer AND via the escalated branch")
	}
}
