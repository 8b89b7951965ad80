package policy

import "errors"

// Wildcard is the least-specific jurisdiction/target identifier a Policy
// Action can carry; any concrete identifier is more specific than it.
const Wildcard = "*"

// ErrGovernanceApprovalMissing is returned by Dispatch when an
// AuthLevelGovernance policy matches a trigger but state carries no
// GovernanceApprovalRefKey.
var ErrGovernanceApprovalMissing = errors.New("policy: governance-level policy requires an approval reference")

// conflictGroup is the set of matched (policy, action) pairs that target
// the same key and therefore compete for a single winner.
type conflictGroup struct {
	key     string
	entries []matchedEntry
}

type matchedEntry struct {
	policy Policy
	action Action
}

// specificity ranks a target string: a concrete identifier outranks the
// wildcard. Per spec.md §4.12 this is the sole tie-break between
// priority and policy-id lex order.
func specificity(target string) int {
	if target == Wildcard || target == "" {
		return 0
	}
	return 1
}

// less reports whether a should be preferred over b under spec.md
// §4.12's total order: priority desc, then jurisdiction specificity
// desc, then policy id lex asc.
func less(a, b matchedEntry) bool {
	if a.policy.Priority != b.policy.Priority {
		return a.policy.Priority > b.policy.Priority
	}
	sa, sb := specificity(a.action.Target), specificity(b.action.Target)
	if sa != sb {
		return sa > sb
	}
	return a.policy.ID < b.policy.ID
}

// Dispatch implements spec.md §4.12's `dispatch(trigger, state) →
// [ScheduledAction]`. It iterates the registry in lexicographic policy-id
// order (stable regardless of registration order), evaluates each
// matching policy's condition against state, groups every resulting
// Action by its conflict key (action kind + target), and resolves each
// conflict group to exactly one winning ScheduledAction.
func (r *Registry) Dispatch(trigger Trigger, state map[string]interface{}) ([]ScheduledAction, AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	audit := AuditEntry{Trigger: trigger}
	groups := make(map[string]*conflictGroup)
	var groupOrder []string

	for _, id := range r.sortedIDs() {
		p := r.policies[id]
		if !matchesTrigger(p, trigger) {
			continue
		}

		ok, err := p.Condition(state)
		if err != nil {
			return nil, audit, err
		}
		if !ok {
			continue
		}

		if p.AuthorizationLevel == AuthLevelGovernance {
			ref, _ := state[GovernanceApprovalRefKey].(string)
			if ref == "" {
				return nil, audit, ErrGovernanceApprovalMissing
			}
		}

		audit.MatchedPolicyIDs = append(audit.MatchedPolicyIDs, p.ID)

		for _, action := range p.Actions {
			key := action.Kind + "\x00" + action.Target
			g, exists := groups[key]
			if !exists {
				g = &conflictGroup{key: key}
				groups[key] = g
				groupOrder = append(groupOrder, key)
			}
			g.entries = append(g.entries, matchedEntry{policy: p, action: action})
		}
	}

	var result []ScheduledAction
	for _, key := range groupOrder {
		g := groups[key]
		winner := g.entries[0]
		for _, e := range g.entries[1:] {
			if less(e, winner) {
				winner = e
			}
		}
		sa := ScheduledAction{
			PolicyID:   winner.policy.ID,
			Trigger:    trigger,
			Action:     winner.action,
			Status:     ScheduledPending,
			MaxRetries: winner.policy.MaxRetries,
		}
		result = append(result, sa)
		audit.ScheduledActions = append(audit.ScheduledActions, sa)
	}

	return result, audit, nil
}

// MarkFailed implements spec.md §4.12's retry semantics: a failed
// ScheduledAction returns to Pending if retries remain, else moves to
// the terminal Failed state.
func MarkFailed(sa ScheduledAction) ScheduledAction {
	sa.Retries++
	if sa.Retries <= sa.MaxRetries {
		sa.Status = ScheduledPending
	} else {
		sa.Status = ScheduledFailed
	}
	return sa
}
