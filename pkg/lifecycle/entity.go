package lifecycle

import "time"

// EntityState is the closed state set governing a corridor participant's
// enrollment. spec.md names an "Entity" lifecycle in its lifecycle module
// listing without enumerating states (an Open Question, recorded in
// DESIGN.md): an entity is the legal party the compliance tensor's KYC/AML
// domains evaluate, so its lifecycle tracks enrollment rather than any
// single domain's attestation state.
type EntityState string

const (
	EntityProspective EntityState = "Prospective"
	EntityOnboarding  EntityState = "Onboarding"
	EntityActive      EntityState = "Active"
	EntitySuspended   EntityState = "Suspended"
	EntityOffboarded  EntityState = "Offboarded"
)

// entityTable: Prospective -> Onboarding -> Active -> {Suspended,
// Offboarded}; Suspended <-> Active; Onboarding and Suspended may also
// go straight to Offboarded. Offboarded is terminal.
var entityTable = TransitionTable[EntityState]{
	EntityProspective: {EntityOnboarding},
	EntityOnboarding:  {EntityActive, EntityOffboarded},
	EntityActive:      {EntitySuspended, EntityOffboarded},
	EntitySuspended:   {EntityActive, EntityOffboarded},
	EntityOffboarded:  {},
}

// NewEntityMachine returns a fresh entity lifecycle machine in Prospective.
func NewEntityMachine(clock func() time.Time) *Machine[EntityState] {
	return NewMachine(EntityProspective, entityTable, clock)
}
