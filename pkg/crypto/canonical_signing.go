package crypto

import (
	"fmt"

	"github.com/corridorledger/substrate/pkg/canonicalize"
)

// SignCanonical signs v's RFC 8785 canonical encoding (pkg/canonicalize).
// Every corridor-domain signable (witness manifests, checkpoints,
// credentials) goes through this path so two signers never disagree
// about what bytes were signed.
func SignCanonical(signer Signer, v interface{}) (string, error) {
	cb, err := canonicalize.Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("crypto: canonicalize for signing failed: %w", err)
	}
	sig, err := signer.Sign([]byte(cb))
	if err != nil {
		return "", fmt.Errorf("crypto: sign failed: %w", err)
	}
	return sig, nil
}

// VerifyCanonical verifies sigHex against v's canonical encoding under
// the given hex public key.
func VerifyCanonical(pubKeyHex, sigHex string, v interface{}) (bool, error) {
	cb, err := canonicalize.Canonicalize(v)
	if err != nil {
		return false, fmt.Errorf("crypto: canonicalize for verification failed: %w", err)
	}
	return Verify(pubKeyHex, sigHex, []byte(cb))
}
