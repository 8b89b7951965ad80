package pack

import (
	"fmt"
	"time"

	"github.com/corridorledger/substrate/pkg/canonicalize"
	"github.com/corridorledger/substrate/pkg/lifecycle"
)

// LicenseGrant is one granted license held in a Licensepack, per spec.md
// §4.10.
type LicenseGrant struct {
	LicenseID     lifecycle.LicenseID    `json:"license_id"`
	HolderDID     string                 `json:"holder_did"`
	Jurisdictions []string               `json:"jurisdictions"`
	Activities    []string               `json:"activities"`
	Conditions    []string               `json:"conditions,omitempty"`
	Restrictions  []string               `json:"restrictions,omitempty"`
	Status        lifecycle.LicenseState `json:"status"`
	EffectiveFrom time.Time              `json:"effective_from"`
	EffectiveTo   time.Time              `json:"effective_to,omitempty"`
}

// Licensepack is a snapshot of current license grants, per spec.md §4.10.
type Licensepack struct {
	Grants []LicenseGrant `json:"grants"`
}

// Digest computes the Licensepack's content-addressed digest.
func (lp *Licensepack) Digest() (string, error) {
	cb, err := canonicalize.Canonicalize(lp)
	if err != nil {
		return "", fmt.Errorf("pack: licensepack canonicalize failed: %w", err)
	}
	return canonicalize.Digest(cb).String(), nil
}

// containsNonEmpty reports whether needle is present in haystack. An
// empty needle never matches anything, even against an empty haystack
// entry, per spec.md §4.10's "empty identifiers/jurisdictions/DIDs are
// never treated as wildcards."
func containsNonEmpty(haystack []string, needle string) bool {
	if needle == "" {
		return false
	}
	for _, candidate := range haystack {
		if candidate != "" && candidate == needle {
			return true
		}
	}
	return false
}

// IsActive reports whether grant is in Active status and, if checkTime
// is non-zero, that checkTime falls within [EffectiveFrom, EffectiveTo).
// A zero EffectiveTo means the grant has no expiry. Comparisons are
// calendar-date based via time.Time, never string comparison, per
// spec.md §4.10.
func (g LicenseGrant) IsActive(checkTime time.Time) bool {
	if g.Status != lifecycle.LicenseActive {
		return false
	}
	if checkTime.IsZero() {
		return true
	}
	if checkTime.Before(g.EffectiveFrom) {
		return false
	}
	if !g.EffectiveTo.IsZero() && !checkTime.Before(g.EffectiveTo) {
		return false
	}
	return true
}

// PermitsActivity reports whether any active grant in lp authorizes
// holderDID to perform activity.
func (lp *Licensepack) PermitsActivity(holderDID, activity string, checkTime time.Time) bool {
	if holderDID == "" || activity == "" {
		return false
	}
	for _, g := range lp.Grants {
		if g.HolderDID != holderDID {
			continue
		}
		if !g.IsActive(checkTime) {
			continue
		}
		if containsNonEmpty(g.Activities, activity) {
			return true
		}
	}
	return false
}

// BlocksJurisdiction reports whether holderDID has an active grant whose
// Restrictions list jurisdiction explicitly.
func (lp *Licensepack) BlocksJurisdiction(holderDID, jurisdiction string, checkTime time.Time) bool {
	if holderDID == "" || jurisdiction == "" {
		return false
	}
	for _, g := range lp.Grants {
		if g.HolderDID != holderDID {
			continue
		}
		if !g.IsActive(checkTime) {
			continue
		}
		if containsNonEmpty(g.Restrictions, jurisdiction) {
			return true
		}
	}
	return false
}
