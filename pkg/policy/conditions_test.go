package policy

import "testing"

func TestCompileCondition_EvaluatesStateExpression(t *testing.T) {
	cond, err := CompileCondition(`state.domain == "Sanctions" && state.count > 0`)
	if err != nil {
		t.Fatalf("CompileCondition failed: %v", err)
	}

	ok, err := cond(map[string]interface{}{"domain": "Sanctions", "count": int64(2)})
	if err != nil {
		t.Fatalf("condition eval failed: %v", err)
	}
	if !ok {
		t.Fatal("expected condition to match matching state")
	}

	ok, err = cond(map[string]interface{}{"domain": "AML", "count": int64(2)})
	if err != nil {
		t.Fatalf("condition eval failed: %v", err)
	}
	if ok {
		t.Fatal("expected condition to reject non-matching state")
	}
}

func TestCompileCondition_RejectsNondeterministicFunctions(t *testing.T) {
	_, err := CompileCondition(`now() > state.deadline`)
	if err == nil {
		t.Fatal("expected now() to be rejected by the deterministic CEL profile")
	}
}

func TestCompileCondition_RejectsFloatType(t *testing.T) {
	_, err := CompileCondition(`double(state.score) > 0.5`)
	if err == nil {
		t.Fatal("expected double() to be rejected by the deterministic CEL profile")
	}
}
