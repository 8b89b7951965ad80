package orchestration

import "crypto/subtle"

// BearerAuthenticator checks a presented bearer token against a set of
// accepted tokens in constant time, per spec.md §4.13 stage 1. There is
// no idiomatic third-party constant-time string comparator in the
// retrieval pack's stack (the teacher's own JWT-based auth middleware in
// pkg/auth is HTTP-route-bound and out of scope per the Non-goals on
// transport); crypto/subtle is the standard, minimal primitive for this
// one narrow comparison.
type BearerAuthenticator struct {
	tokens map[string]struct{}
}

// NewBearerAuthenticator returns an authenticator accepting exactly the
// given tokens.
func NewBearerAuthenticator(tokens ...string) *BearerAuthenticator {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return &BearerAuthenticator{tokens: set}
}

// Authenticate reports whether presented matches any accepted token,
// comparing against every candidate in constant time without stopping at
// a match, so timing does not reveal which token matched. The loop's
// duration still grows with the number of accepted tokens.
func (a *BearerAuthenticator) Authenticate(presented string) error {
	match := 0
	for t := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(presented)) == 1 {
			match = 1
		}
	}
	if match != 1 {
		return &UnauthorizedError{}
	}
	return nil
}
