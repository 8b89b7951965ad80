// Package credentials implements the W3C-style Verifiable Credential
// layer of spec.md §4.5: sign attaches one or more proofs to a
// credential, verify checks each proof independently against a
// resolver, and the payload digest binds a credential to an ArtifactRef
// the same way every other corridor artifact is bound.
package credentials

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/corridorledger/substrate/pkg/canonicalize"
	"github.com/corridorledger/substrate/pkg/crypto"
	"github.com/corridorledger/substrate/pkg/interfaces"
)

// ErrNoProofs is returned by Verify when a credential carries no proofs
// at all — an unsigned credential is never valid.
var ErrNoProofs = errors.New("credentials: credential has no proofs")

// ProofType is the closed set of proof mechanisms this package produces
// and checks.
type ProofType string

const (
	// ProofTypeEd25519 signs the credential's canonical bytes directly
	// with pkg/crypto's Ed25519 signer, per spec.md's CanonicalBytes
	// signing rule.
	ProofTypeEd25519 ProofType = "Ed25519Signature2026"
	// ProofTypeJWT wraps the same payload digest in a JWT, for
	// counterparties that only speak JOSE.
	ProofTypeJWT ProofType = "JsonWebSignature2026"
)

// Proof is one attestation over a credential's payload digest. A
// credential may carry more than one Proof, each independently
// verifiable.
type Proof struct {
	Type               ProofType `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verification_method"` // DID URL or hex public key
	ProofPurpose       string    `json:"proof_purpose"`
	ProofValue         string    `json:"proof_value"` // hex signature, or compact JWT
}

// Credential is a W3C-VC-shaped claim: a subject, a set of claims about
// it, an issuer, and zero or more Proofs. Proofs are never included in
// the payload digest computation — PayloadDigest always hashes the
// credential with Proofs stripped.
type Credential struct {
	ID        string                 `json:"id"`
	Type      []string               `json:"type"`
	Issuer    string                 `json:"issuer"`
	Subject   string                 `json:"subject"`
	Claims    map[string]interface{} `json:"claims"`
	IssuedAt  time.Time              `json:"issued_at"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
	Proofs    []Proof                `json:"proofs,omitempty"`
}

// NewCredential builds an unsigned credential with a fresh identifier.
func NewCredential(issuer, subject string, vcType []string, claims map[string]interface{}, issuedAt time.Time) *Credential {
	return &Credential{
		ID:       "urn:uuid:" + uuid.New().String(),
		Type:     vcType,
		Issuer:   issuer,
		Subject:  subject,
		Claims:   claims,
		IssuedAt: issuedAt,
	}
}

// withoutProofs returns a shallow copy of c with Proofs cleared, the
// shape PayloadDigest and signing always operate over.
func (c *Credential) withoutProofs() *Credential {
	cp := *c
	cp.Proofs = nil
	return &cp
}

// PayloadDigest computes payload_digest = digest(canonicalize(credential
// without proofs)), per spec.md §4.5.
func (c *Credential) PayloadDigest() (canonicalize.ContentDigest, error) {
	cb, err := canonicalize.Canonicalize(c.withoutProofs())
	if err != nil {
		return canonicalize.ContentDigest{}, fmt.Errorf("credentials: canonicalize for digest: %w", err)
	}
	return canonicalize.Digest(cb), nil
}

// Sign adds one proof of the given type to credential, signed by
// signer. Multiple calls with different proof types accumulate proofs
// rather than replace them.
func Sign(c *Credential, signer crypto.Signer, proofType ProofType, proofPurpose string, createdAt time.Time) error {
	digest, err := c.PayloadDigest()
	if err != nil {
		return err
	}

	var proofValue string
	switch proofType {
	case ProofTypeEd25519:
		proofValue, err = crypto.SignCanonical(signer, c.withoutProofs())
		if err != nil {
			return fmt.Errorf("credentials: Ed25519 signing failed: %w", err)
		}
	case ProofTypeJWT:
		proofValue, err = signJWT(digest, signer)
		if err != nil {
			return fmt.Errorf("credentials: JWT signing failed: %w", err)
		}
	default:
		return fmt.Errorf("credentials: unsupported proof type %q", proofType)
	}

	c.Proofs = append(c.Proofs, Proof{
		Type:               proofType,
		Created:            createdAt,
		VerificationMethod: signer.PublicKey(),
		ProofPurpose:       proofPurpose,
		ProofValue:         proofValue,
	})
	return nil
}

// jwtClaims binds a credential's payload digest into a standard JWT
// claim set, signed with an Ed25519-backed key via the corridorEdDSA
// signing method.
type jwtClaims struct {
	jwt.RegisteredClaims
	PayloadDigest string `json:"payload_digest"`
}

// corridorSigningMethod adapts pkg/crypto's hex-string Signer interface
// to jwt/v5's SigningMethod contract, since Signer.Sign never exposes a
// raw ed25519.PrivateKey for jwt's built-in EdDSA method to consume.
type corridorSigningMethod struct{}

func (corridorSigningMethod) Alg() string { return "CORRIDOR-ED25519" }

func (corridorSigningMethod) Sign(signingString string, key interface{}) ([]byte, error) {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("credentials: jwt sign key must be a crypto.Signer, got %T", key)
	}
	sigHex, err := signer.Sign([]byte(signingString))
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(sigHex)
}

func (corridorSigningMethod) Verify(signingString string, sig []byte, key interface{}) error {
	pubKeyHex, ok := key.(string)
	if !ok {
		return fmt.Errorf("credentials: jwt verify key must be a hex public key string, got %T", key)
	}
	ok2, err := crypto.Verify(pubKeyHex, hex.EncodeToString(sig), []byte(signingString))
	if err != nil {
		return err
	}
	if !ok2 {
		return fmt.Errorf("credentials: jwt signature verification failed")
	}
	return nil
}

func init() {
	jwt.RegisterSigningMethod(corridorSigningMethod{}.Alg(), func() jwt.SigningMethod {
		return corridorSigningMethod{}
	})
}

func signJWT(digest canonicalize.ContentDigest, signer crypto.Signer) (string, error) {
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		PayloadDigest: digest.String(),
	}
	token := jwt.NewWithClaims(corridorSigningMethod{}, claims)
	signed, err := token.SignedString(signer)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// VerificationResolver resolves a VerificationMethod identifier (as
// stored on a Proof) to the hex-encoded Ed25519 public key that should
// validate it. Typically backed by a DID document store or a corridor
// registry of known entity keys.
type VerificationResolver func(verificationMethod string) (pubKeyHex string, err error)

// ProofResult is the outcome of checking one proof independently.
type ProofResult struct {
	ProofType          ProofType
	VerificationMethod string
	Valid              bool
	Err                error
}

// Verify checks every proof on c independently against resolver,
// returning one ProofResult per proof. Per spec.md §4.5 a credential
// with zero proofs is never valid, regardless of claim content.
func Verify(c *Credential, resolver VerificationResolver) ([]ProofResult, error) {
	if len(c.Proofs) == 0 {
		return nil, ErrNoProofs
	}

	results := make([]ProofResult, 0, len(c.Proofs))
	for _, proof := range c.Proofs {
		results = append(results, verifyOne(c, proof, resolver))
	}
	return results, nil
}

func verifyOne(c *Credential, proof Proof, resolver VerificationResolver) ProofResult {
	result := ProofResult{ProofType: proof.Type, VerificationMethod: proof.VerificationMethod}

	pubKeyHex, err := resolver(proof.VerificationMethod)
	if err != nil {
		result.Err = fmt.Errorf("credentials: resolving verification method: %w", err)
		return result
	}

	switch proof.Type {
	case ProofTypeEd25519:
		ok, err := crypto.VerifyCanonical(pubKeyHex, proof.ProofValue, c.withoutProofs())
		result.Valid, result.Err = ok, err
	case ProofTypeJWT:
		ok, err := verifyJWT(proof.ProofValue, c, pubKeyHex)
		result.Valid, result.Err = ok, err
	default:
		result.Err = fmt.Errorf("credentials: unsupported proof type %q", proof.Type)
	}
	return result
}

func verifyJWT(tokenString string, c *Credential, pubKeyHex string) (bool, error) {
	digest, err := c.PayloadDigest()
	if err != nil {
		return false, err
	}

	claims := &jwtClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return pubKeyHex, nil
	}, jwt.WithValidMethods([]string{corridorSigningMethod{}.Alg()}))
	if err != nil {
		return false, fmt.Errorf("credentials: JWT parse/verify failed: %w", err)
	}
	if claims.PayloadDigest != digest.String() {
		return false, fmt.Errorf("credentials: JWT payload_digest %s does not match recomputed %s", claims.PayloadDigest, digest.String())
	}
	return true, nil
}

// ToArtifactRef builds the ArtifactRef a signed credential is bound
// into the corridor artifact store under, typed as "vc" per
// pkg/interfaces.
func (c *Credential) ToArtifactRef() (interfaces.ArtifactRef, error) {
	cb, err := canonicalize.Canonicalize(c)
	if err != nil {
		return interfaces.ArtifactRef{}, fmt.Errorf("credentials: canonicalize for artifact ref: %w", err)
	}
	digest := canonicalize.Digest(cb)
	length := int64(len(cb))
	return interfaces.ArtifactRef{
		ArtifactType: interfaces.ArtifactVC,
		Digest:       digest.String(),
		MediaType:    "application/vc+json",
		ByteLength:   &length,
	}, nil
}
