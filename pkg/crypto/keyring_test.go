package crypto

import (
	"encoding/hex"
	"testing"
)

func TestKeyRing_DeterministicSigning(t *testing.T) {
	kr := NewKeyRing()

	k1, _ := NewEd25519Signer("key1")
	k2, _ := NewEd25519Signer("key2")
	k3, _ := NewEd25519Signer("key3")

	kr.AddKey(k1)
	kr.AddKey(k2)
	kr.AddKey(k3)

	msg := []byte("hello world")
	sigHex, err := kr.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	// The ring always signs with the lexicographically last keyID ("key3").
	sigBytes, _ := hex.DecodeString(sigHex)
	ok, err := kr.VerifyKey("key3", msg, sigBytes)
	if err != nil {
		t.Fatalf("VerifyKey failed: %v", err)
	}
	if !ok {
		t.Error("expected signature from key3 to verify against key3")
	}
}

func TestKeyRing_VerifyKey(t *testing.T) {
	kr := NewKeyRing()
	k1, _ := NewEd25519Signer("key1")
	kr.AddKey(k1)

	msg := []byte("hello world")
	sigHex, err := k1.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	sigBytes, _ := hex.DecodeString(sigHex)

	valid, err := kr.VerifyKey("key1", msg, sigBytes)
	if err != nil {
		t.Fatalf("VerifyKey failed: %v", err)
	}
	if !valid {
		t.Error("VerifyKey returned false")
	}

	// Test unknown key
	_, err = kr.VerifyKey("unknown", msg, sigBytes)
	if err == nil {
		t.Error("VerifyKey should fail for unknown key")
	}
}

func TestKeyRing_RotateKeepsOldKeyVerifiable(t *testing.T) {
	kr := NewKeyRing()
	oldSigner, _ := NewEd25519Signer("key-old")
	kr.AddKey(oldSigner)

	msg := []byte("receipt bytes")
	sigHex, err := oldSigner.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	sigBytes, _ := hex.DecodeString(sigHex)

	newSigner, _ := NewEd25519Signer("key-new")
	if err := kr.Rotate("key-old", newSigner); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if kr.RotationCount() != 1 {
		t.Fatalf("expected RotationCount 1, got %d", kr.RotationCount())
	}

	// The retired key must still verify signatures produced before rotation.
	ok, err := kr.VerifyKey("key-old", msg, sigBytes)
	if err != nil {
		t.Fatalf("VerifyKey(key-old) failed after rotation: %v", err)
	}
	if !ok {
		t.Error("expected retired key to still verify its own pre-rotation signature")
	}

	kr.RevokeKey("key-old")
	if _, err := kr.VerifyKey("key-old", msg, sigBytes); err == nil {
		t.Error("expected revoked key to be unresolvable")
	}
}
