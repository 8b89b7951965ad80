package crypto

import (
	"fmt"
	"sort"
	"sync"
)

// KeyRing implements Signer/Verifier for multiple keys (Rotation support).
type KeyRing struct {
	mu        sync.RWMutex
	signers   map[string]Signer // map keyID -> Signer
	rotations int
}

// NewKeyRing creates a new empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{
		signers: make(map[string]Signer),
	}
}

// AddKey adds a signer to the keyring.
func (k *KeyRing) AddKey(s Signer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if ed, ok := s.(*Ed25519Signer); ok {
		k.signers[ed.KeyID] = s
	}
}

// RevokeKey removes a key from the keyring by ID.
func (k *KeyRing) RevokeKey(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.signers, keyID)
}

// Rotate adds newSigner to the ring after checking that oldKeyID is
// present, and counts the rotation. The old key is not removed: VerifyKey
// still resolves it until a caller explicitly RevokeKeys it, so receipts
// signed just before a rotation still verify inside an open dispute
// window. Until then Sign keeps choosing the lexicographically last keyID,
// which may still be the old key.
func (k *KeyRing) Rotate(oldKeyID string, newSigner Signer) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.signers[oldKeyID]; !ok {
		return fmt.Errorf("unknown key: %s", oldKeyID)
	}
	ed, ok := newSigner.(*Ed25519Signer)
	if !ok {
		return fmt.Errorf("keyring rotation requires an Ed25519Signer")
	}
	k.signers[ed.KeyID] = newSigner
	k.rotations++
	return nil
}

// RotationCount returns how many times Rotate has been called.
func (k *KeyRing) RotationCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.rotations
}

// VerifyKey verifies signature for a specific key
func (k *KeyRing) VerifyKey(keyID string, message []byte, signature []byte) (bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	signer, exists := k.signers[keyID]
	if !exists {
		return false, fmt.Errorf("unknown key: %s", keyID)
	}

	if v, ok := signer.(*Ed25519Signer); ok {
		return v.Verify(message, signature), nil
	}

	return false, fmt.Errorf("signer %s does not support raw verification", keyID)
}

// Sign signs data with the deterministically selected (lexicographically
// last keyID) key.
func (k *KeyRing) Sign(data []byte) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var keys []string
	for k := range k.signers {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("no keyring keys available")
	}
	sort.Strings(keys)
	selectedKey := keys[len(keys)-1]

	return k.signers[selectedKey].Sign(data)
}

// PublicKey returns a marker since a KeyRing aggregates multiple keys.
func (k *KeyRing) PublicKey() string {
	return "keyring-aggregate"
}

// PublicKeyBytes is unsupported for an aggregate keyring; callers that need
// a specific key's bytes should resolve the underlying Ed25519Signer.
func (k *KeyRing) PublicKeyBytes() []byte {
	return nil
}

// Verify tries every key in the ring until one verifies the signature.
func (k *KeyRing) Verify(message []byte, signature []byte) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, s := range k.signers {
		if v, ok := s.(Verifier); ok {
			if v.Verify(message, signature) {
				return true
			}
		}
	}
	return false
}
