package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"

	"github.com/corridorledger/substrate/pkg/governance"
)

// celConditionEnv declares the single `state` variable every condition
// expression evaluates against; conditions see the dispatch-time State
// snapshot and nothing else — no clock, no randomness, no external
// lookups, per spec.md §4.12's determinism property.
func celConditionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("state", types.NewMapType(types.StringType, types.DynType)),
		),
	)
}

// CompileCondition validates expr against the deterministic CEL profile
// (governance.CELDPValidator: no now()/timestamp()/random()/uuid(), no
// double/float, no dyn()/type()), compiles it, and wraps it as a
// ConditionFunc bool-typed over `state`.
func CompileCondition(expr string) (ConditionFunc, error) {
	validator := governance.NewCELDPValidator()
	if issues := validator.ValidateExpression(expr); len(issues) > 0 {
		return nil, fmt.Errorf("policy: condition %q fails deterministic CEL profile: %+v", expr, issues)
	}

	env, err := celConditionEnv()
	if err != nil {
		return nil, fmt.Errorf("policy: building CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy: compiling condition %q: %w", expr, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("policy: building CEL program for %q: %w", expr, err)
	}

	return func(state map[string]interface{}) (bool, error) {
		out, _, err := prg.Eval(map[string]interface{}{"state": state})
		if err != nil {
			return false, fmt.Errorf("policy: evaluating condition %q: %w", expr, err)
		}
		allowed, ok := out.Value().(bool)
		if !ok {
			return false, fmt.Errorf("policy: condition %q did not return a bool", expr)
		}
		return allowed, nil
	}, nil
}

// AlwaysTrue is the trivial condition: matches any state, for policies
// triggered by Trigger membership alone.
func AlwaysTrue(map[string]interface{}) (bool, error) { return true, nil }
