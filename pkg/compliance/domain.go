// Package compliance implements the jurisdiction-parameterized compliance
// tensor of spec.md §4.9: a fixed 20-domain evaluation lattice per entity,
// committed to a Merkle root, plus a jurisdiction manifold for
// cost-weighted path optimization between jurisdictions.
package compliance

// Domain is one of the 20 closed regulatory domain tags spec.md §3
// enumerates. The set is closed: no caller may register a new domain at
// runtime, since a tensor's shape (and therefore its commitment) must be
// identical across every implementation.
type Domain string

const (
	DomainAML                Domain = "AML"
	DomainKYC                Domain = "KYC"
	DomainSanctions          Domain = "Sanctions"
	DomainTax                Domain = "Tax"
	DomainSecurities         Domain = "Securities"
	DomainCorporate          Domain = "Corporate"
	DomainCustody            Domain = "Custody"
	DomainDataPrivacy        Domain = "DataPrivacy"
	DomainLicensing          Domain = "Licensing"
	DomainBanking            Domain = "Banking"
	DomainPayments           Domain = "Payments"
	DomainClearing           Domain = "Clearing"
	DomainSettlement         Domain = "Settlement"
	DomainDigitalAssets      Domain = "DigitalAssets"
	DomainEmployment         Domain = "Employment"
	DomainImmigration        Domain = "Immigration"
	DomainIP                 Domain = "IP"
	DomainConsumerProtection Domain = "ConsumerProtection"
	DomainArbitration        Domain = "Arbitration"
	DomainTrade              Domain = "Trade"
)

// AllDomains lists the closed domain set in the order spec.md §3
// enumerates it. Evaluate iterates this slice, not a map, so evaluation
// order (and therefore error reporting order) is deterministic.
var AllDomains = []Domain{
	DomainAML, DomainKYC, DomainSanctions, DomainTax, DomainSecurities,
	DomainCorporate, DomainCustody, DomainDataPrivacy, DomainLicensing,
	DomainBanking, DomainPayments, DomainClearing, DomainSettlement,
	DomainDigitalAssets, DomainEmployment, DomainImmigration, DomainIP,
	DomainConsumerProtection, DomainArbitration, DomainTrade,
}

// IsValid reports whether d is a member of the closed domain set.
func (d Domain) IsValid() bool {
	for _, candidate := range AllDomains {
		if candidate == d {
			return true
		}
	}
	return false
}

// State is the 5-value compliance lattice of spec.md §3:
// NonCompliant < Pending < {Compliant, Exempt, NotApplicable}.
// Compliant, Exempt, and NotApplicable are mutually incomparable
// siblings above Pending — none dominates another.
type State string

const (
	StateNonCompliant  State = "NonCompliant"
	StatePending        State = "Pending"
	StateCompliant      State = "Compliant"
	StateExempt         State = "Exempt"
	StateNotApplicable  State = "NotApplicable"
)

func (s State) rank() int {
	switch s {
	case StateNonCompliant:
		return 0
	case StatePending:
		return 1
	default:
		return 2
	}
}

// LessThan reports whether s is strictly below other in the lattice.
// Two states at the same rank (e.g. Compliant and Exempt) are never
// LessThan each other, even when equal, since the lattice does not order
// its top three values against one another.
func (s State) LessThan(other State) bool {
	return s.rank() < other.rank()
}

// IsHardBlock reports whether a cell in this state on the Sanctions
// domain constitutes a hard block, per spec.md §3's "Sanctions =
// NonCompliant is a hard block."
func (s State) IsHardBlock(domain Domain) bool {
	return domain == DomainSanctions && s == StateNonCompliant
}
