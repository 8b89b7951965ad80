package lifecycle

import "time"

// LicenseState is the closed state set of spec.md §4.6/line 178 (the
// Licensepack status lifecycle): `Pending -> Active -> {Suspended,
// Revoked, Expired}`.
type LicenseState string

const (
	LicensePending   LicenseState = "Pending"
	LicenseActive    LicenseState = "Active"
	LicenseSuspended LicenseState = "Suspended"
	LicenseRevoked   LicenseState = "Revoked"
	LicenseExpired   LicenseState = "Expired"
)

var licenseTable = TransitionTable[LicenseState]{
	LicensePending:   {LicenseActive},
	LicenseActive:    {LicenseSuspended, LicenseRevoked, LicenseExpired},
	LicenseSuspended: {LicenseActive, LicenseRevoked, LicenseExpired},
	LicenseRevoked:   {},
	LicenseExpired:   {},
}

// NewLicenseMachine returns a fresh license lifecycle machine in Pending.
func NewLicenseMachine(clock func() time.Time) *Machine[LicenseState] {
	return NewMachine(LicensePending, licenseTable, clock)
}
