package lifecycle

import (
	"fmt"

	"github.com/google/uuid"
)

// Identifier newtypes for the Data Model entities this package governs.
// Each wraps a UUIDv4 string (grounded on registry/pack_registry.go's
// `uuid.New().String()` convention) so a CorridorID can never be passed
// where a WatcherID is expected, even though both are strings underneath.

type CorridorID string
type EntityID string
type MigrationID string
type LicenseID string
type WatcherID string
type EnforcementOrderID string
type DisputeID string

func NewCorridorID() CorridorID           { return CorridorID(uuid.New().String()) }
func NewEntityID() EntityID               { return EntityID(uuid.New().String()) }
func NewMigrationID() MigrationID         { return MigrationID(uuid.New().String()) }
func NewLicenseID() LicenseID             { return LicenseID(uuid.New().String()) }
func NewWatcherID() WatcherID             { return WatcherID(uuid.New().String()) }
func NewEnforcementOrderID() EnforcementOrderID { return EnforcementOrderID(uuid.New().String()) }
func NewDisputeID() DisputeID             { return DisputeID(uuid.New().String()) }

// ParseCorridorID validates that s is a well-formed UUID before wrapping it;
// identifiers arriving over the wire (receipts, credentials) must not be
// trusted as UUIDs without this check.
func ParseCorridorID(s string) (CorridorID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("lifecycle: invalid corridor id: %w", err)
	}
	return CorridorID(s), nil
}

func ParseEntityID(s string) (EntityID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("lifecycle: invalid entity id: %w", err)
	}
	return EntityID(s), nil
}

func ParseWatcherID(s string) (WatcherID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("lifecycle: invalid watcher id: %w", err)
	}
	return WatcherID(s), nil
}
