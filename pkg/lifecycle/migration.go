package lifecycle

import (
	"errors"
	"time"
)

// MigrationState is the closed state set of the corridor migration saga
// (spec.md §4.6, Scenario F). spec.md names the phases generically as
// Phase0..Phase4 and describes compensate() only by example; the concrete
// phase names below (SourceLock, ComplianceCheck, InTransit,
// DestinationVerification, DestinationUnlock) are this implementation's
// naming of those phases, recorded as an Open Question decision in
// DESIGN.md.
type MigrationState string

const (
	MigrationSourceLock             MigrationState = "SourceLock"
	MigrationComplianceCheck        MigrationState = "ComplianceCheck"
	MigrationInTransit              MigrationState = "InTransit"
	MigrationDestinationVerification MigrationState = "DestinationVerification"
	MigrationDestinationUnlock      MigrationState = "DestinationUnlock"
	MigrationCompleted              MigrationState = "Completed"
	MigrationCompensating           MigrationState = "Compensating"
	MigrationAborted                MigrationState = "Aborted"
	MigrationCompensationFailed     MigrationState = "CompensationFailed"
)

var migrationTable = TransitionTable[MigrationState]{
	MigrationSourceLock:              {MigrationComplianceCheck},
	MigrationComplianceCheck:         {MigrationInTransit},
	MigrationInTransit:               {MigrationDestinationVerification, MigrationCompensating},
	MigrationDestinationVerification: {MigrationDestinationUnlock, MigrationCompensating},
	MigrationDestinationUnlock:       {MigrationCompleted, MigrationCompensating},
	MigrationCompleted:               {},
	MigrationCompensating:            {MigrationAborted, MigrationCompensationFailed},
	MigrationAborted:                 {},
	MigrationCompensationFailed:      {},
}

// compensableFrom is the set of phases from which compensate() may be
// invoked, per spec.md's Scenario F: InTransit, DestinationVerification,
// and DestinationUnlock. The table above already allows Compensating only
// from these three phases; compensableFrom lets Compensate check
// eligibility before attempting the transition, so a call from any other
// phase (e.g. ComplianceCheck) fails with ErrNotCompensable rather than
// InvalidTransitionError.
var compensableFrom = map[MigrationState]bool{
	MigrationInTransit:               true,
	MigrationDestinationVerification: true,
	MigrationDestinationUnlock:       true,
}

// ErrNotCompensable is returned by Compensate when the saga's current
// phase does not permit compensation.
var ErrNotCompensable = errors.New("lifecycle: migration phase does not permit compensate()")

// MigrationSaga wraps the generic machine with the compensate() verb's
// eligibility check, which reports an ineligible phase as
// ErrNotCompensable.
type MigrationSaga struct {
	*Machine[MigrationState]
}

// NewMigrationSaga returns a fresh migration saga machine in SourceLock.
func NewMigrationSaga(clock func() time.Time) *MigrationSaga {
	return &MigrationSaga{Machine: NewMachine(MigrationSourceLock, migrationTable, clock)}
}

// Compensate invokes compensate() from the saga's current phase. It fails
// with ErrNotCompensable if the current phase is not one of InTransit,
// DestinationVerification, or DestinationUnlock.
func (s *MigrationSaga) Compensate(evidenceDigest, reason string) (MigrationState, error) {
	if !compensableFrom[s.State()] {
		return s.State(), ErrNotCompensable
	}
	return s.Fire("compensate", MigrationCompensating, evidenceDigest, reason)
}
