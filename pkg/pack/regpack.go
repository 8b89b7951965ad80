package pack

import (
	"fmt"
	"time"

	"github.com/corridorledger/substrate/pkg/canonicalize"
)

// RegulatorProfile identifies the regulator a Regpack snapshot was issued
// by, per spec.md §4.10.
type RegulatorProfile struct {
	Name           string `json:"name"`
	JurisdictionID string `json:"jurisdiction_id"`
	ContactInfo    string `json:"contact_info,omitempty"`
}

// SanctionsEntry is one listed party, with any known aliases, a sanctions
// list carries.
type SanctionsEntry struct {
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases,omitempty"`
	ListSource string   `json:"list_source"`
}

// ComplianceDeadline is a recurring or one-off regulatory due date.
type ComplianceDeadline struct {
	Label      string    `json:"label"`
	DueDate    time.Time `json:"due_date"`
	Recurrence string    `json:"recurrence,omitempty"` // e.g. "annual", "" for one-off
}

// ReportingRequirement is a standing obligation to file with the
// regulator.
type ReportingRequirement struct {
	Label     string `json:"label"`
	Frequency string `json:"frequency"`
	Format    string `json:"format,omitempty"`
}

// Regpack is a structured regulator profile plus sanctions list,
// compliance deadlines, and reporting rules, per spec.md §4.10.
type Regpack struct {
	Profile   RegulatorProfile       `json:"profile"`
	Sanctions []SanctionsEntry       `json:"sanctions"`
	Deadlines []ComplianceDeadline   `json:"deadlines,omitempty"`
	Reporting []ReportingRequirement `json:"reporting,omitempty"`
}

// Digest computes the Regpack's content-addressed digest over its
// canonical encoding.
func (r *Regpack) Digest() (string, error) {
	cb, err := canonicalize.Canonicalize(r)
	if err != nil {
		return "", fmt.Errorf("pack: regpack canonicalize failed: %w", err)
	}
	return canonicalize.Digest(cb).String(), nil
}

// SanctionsMatch is the best fuzzy match found against a candidate name.
type SanctionsMatch struct {
	Candidate  string  `json:"candidate"`
	Matched    string  `json:"matched"`
	ListSource string  `json:"list_source"`
	Score      float64 `json:"score"`
}

// CheckSanctions scores candidate against every name and alias on every
// sanctions entry, returning the single best match and whether it meets
// or exceeds threshold (per spec.md §4.10/§6's "sanctions_match_threshold,
// 0.0-1.0"). A match at or above threshold constitutes a hard block
// (Sanctions = NonCompliant) when wired into the compliance tensor.
func (r *Regpack) CheckSanctions(candidate string, threshold float64) (*SanctionsMatch, bool) {
	var best *SanctionsMatch
	for _, entry := range r.Sanctions {
		names := append([]string{entry.Name}, entry.Aliases...)
		for _, name := range names {
			score := nameSimilarity(candidate, name)
			if best == nil || score > best.Score {
				best = &SanctionsMatch{
					Candidate:  candidate,
					Matched:    name,
					ListSource: entry.ListSource,
					Score:      score,
				}
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, best.Score >= threshold
}
