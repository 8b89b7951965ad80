package watcher

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/corridorledger/substrate/pkg/interfaces"
)

// EvidenceLogic combines sibling requirements in an EvidenceRequirementSet.
type EvidenceLogic string

const (
	EvidenceAND EvidenceLogic = "AND"
	EvidenceOR  EvidenceLogic = "OR"
)

// EvidenceRequirement is one leaf condition a dispute's evidence package
// must satisfy: either the presence of an artifact of ArtifactType, or a
// CEL expression evaluated against the package's claims.
type EvidenceRequirement struct {
	ID           string
	ArtifactType interfaces.ArtifactType
	Expression   string // CEL boolean expression over "evidence" (the claims map)
}

// EvidenceRequirementSet is a recursive AND/OR tree of requirements,
// adapted from the teacher's proof-requirement-graph shape: it decides
// whether a dispute's evidence package (an ArtifactRef bundle) is
// sufficient to advance past EvidenceGathering.
type EvidenceRequirementSet struct {
	Logic        EvidenceLogic
	Requirements []EvidenceRequirement
	Children     []EvidenceRequirementSet
}

// EvidenceEvaluator compiles and caches the CEL expressions used across a
// corridor's evidence requirement sets.
type EvidenceEvaluator struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewEvidenceEvaluator builds an evaluator exposing a single "evidence" map
// variable to CEL expressions.
func NewEvidenceEvaluator() (*EvidenceEvaluator, error) {
	env, err := cel.NewEnv(cel.Variable("evidence", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("watcher: building CEL env: %w", err)
	}
	return &EvidenceEvaluator{env: env, cache: make(map[string]cel.Program)}, nil
}

func (e *EvidenceEvaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	p, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.cache[expr]; ok {
		return p, nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("watcher: compiling evidence expression %q: %w", expr, issues.Err())
	}
	prog, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("watcher: building evidence program %q: %w", expr, err)
	}
	e.cache[expr] = prog
	return prog, nil
}

// Satisfies reports whether artifacts and claims together satisfy set.
func (e *EvidenceEvaluator) Satisfies(set EvidenceRequirementSet, artifacts []interfaces.ArtifactRef, claims map[string]interface{}) (bool, error) {
	if len(set.Requirements) == 0 && len(set.Children) == 0 {
		return true, nil
	}

	results := make([]bool, 0, len(set.Requirements)+len(set.Children))
	for _, req := range set.Requirements {
		ok, err := e.satisfiesOne(req, artifacts, claims)
		if err != nil {
			return false, err
		}
		results = append(results, ok)
	}
	for _, child := range set.Children {
		ok, err := e.Satisfies(child, artifacts, claims)
		if err != nil {
			return false, err
		}
		results = append(results, ok)
	}

	switch set.Logic {
	case EvidenceOR:
		for _, r := range results {
			if r {
				return true, nil
			}
		}
		return false, nil
	case EvidenceAND, "":
		for _, r := range results {
			if !r {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("watcher: unknown evidence logic %q", set.Logic)
	}
}

func (e *EvidenceEvaluator) satisfiesOne(req EvidenceRequirement, artifacts []interfaces.ArtifactRef, claims map[string]interface{}) (bool, error) {
	if req.Expression != "" {
		prog, err := e.program(req.Expression)
		if err != nil {
			return false, err
		}
		out, _, err := prog.Eval(map[string]interface{}{"evidence": claims})
		if err != nil {
			return false, fmt.Errorf("watcher: evaluating requirement %s: %w", req.ID, err)
		}
		val, ok := out.Value().(bool)
		if !ok {
			return false, fmt.Errorf("watcher: requirement %s did not evaluate to a boolean", req.ID)
		}
		return val, nil
	}

	if req.ArtifactType != "" {
		for _, a := range artifacts {
			if a.ArtifactType == req.ArtifactType {
				return true, nil
			}
		}
		return false, nil
	}

	// No expression and no artifact type: an open requirement always
	// passes.
	return true, nil
}
