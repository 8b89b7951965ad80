package crypto

import (
	"bytes"
	"testing"
)

func TestEd25519Signer_PublicKeyBytesMatchesHex(t *testing.T) {
	signer, err := NewEd25519Signer("key-1")
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}

	restored := NewEd25519SignerFromKey(signer.privKey, "key-1")
	if !bytes.Equal(restored.PublicKeyBytes(), signer.PublicKeyBytes()) {
		t.Fatal("restoring a signer from its private key should reproduce the same public key")
	}
	if restored.PublicKey() != signer.PublicKey() {
		t.Fatal("hex-encoded public key mismatch after restoring from key bytes")
	}
}
