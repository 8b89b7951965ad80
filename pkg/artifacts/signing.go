package artifacts

import (
	"errors"
	"fmt"

	"github.com/corridorledger/substrate/pkg/crypto"
)

var ErrSignerNotConfigured = errors.New("artifacts: signer not configured (fail-closed)")

// SignedManifest pairs a witness manifest with a signature over its
// canonical bytes, so an offline verifier can check the bundle came from
// the store that claims to have produced it.
type SignedManifest struct {
	Manifest  WitnessManifest `json:"manifest"`
	Signature string          `json:"signature"`
	KeyID     string          `json:"key_id"`
}

// SignWitnessManifest signs manifest's canonical encoding. Unsigned
// witness bundles are still self-contained and digest-verifiable, but a
// signature additionally attests provenance.
func SignWitnessManifest(manifest WitnessManifest, signer crypto.Signer) (*SignedManifest, error) {
	if signer == nil {
		return nil, ErrSignerNotConfigured
	}
	sig, err := crypto.SignCanonical(signer, manifest)
	if err != nil {
		return nil, fmt.Errorf("artifacts: manifest sign failed: %w", err)
	}
	return &SignedManifest{
		Manifest:  manifest,
		Signature: sig,
		KeyID:     signer.PublicKey(),
	}, nil
}
