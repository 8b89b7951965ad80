// Package interfaces holds the small set of cross-cutting types shared by
// every component of the corridor substrate: the artifact reference shape
// that binds content-addressed data across the system.
package interfaces

// ArtifactType is the closed set of artifact kinds the store recognizes.
type ArtifactType string

const (
	ArtifactLawpack               ArtifactType = "lawpack"
	ArtifactRegpack               ArtifactType = "regpack"
	ArtifactLicensepack           ArtifactType = "licensepack"
	ArtifactRuleset               ArtifactType = "ruleset"
	ArtifactSchema                ArtifactType = "schema"
	ArtifactVC                    ArtifactType = "vc"
	ArtifactCheckpoint            ArtifactType = "checkpoint"
	ArtifactCircuit               ArtifactType = "circuit"
	ArtifactProofKey              ArtifactType = "proof-key"
	ArtifactBlob                  ArtifactType = "blob"
	ArtifactTransitionTypes       ArtifactType = "transition-types"
	ArtifactSmartAssetGenesis     ArtifactType = "smart-asset-genesis"
	ArtifactSmartAssetCheckpoint  ArtifactType = "smart-asset-checkpoint"
	ArtifactSmartAssetReceiptCkpt ArtifactType = "smart-asset-receipt-checkpoint"
	ArtifactRuleEvalEvidence      ArtifactType = "rule-eval-evidence"
	ArtifactSettlementAnchor      ArtifactType = "settlement-anchor"
	ArtifactProofBinding          ArtifactType = "proof-binding"
)

// IsValid reports whether t is one of the recognized artifact types.
func (t ArtifactType) IsValid() bool {
	switch t {
	case ArtifactLawpack, ArtifactRegpack, ArtifactLicensepack, ArtifactRuleset,
		ArtifactSchema, ArtifactVC, ArtifactCheckpoint, ArtifactCircuit,
		ArtifactProofKey, ArtifactBlob, ArtifactTransitionTypes,
		ArtifactSmartAssetGenesis, ArtifactSmartAssetCheckpoint,
		ArtifactSmartAssetReceiptCkpt, ArtifactRuleEvalEvidence,
		ArtifactSettlementAnchor, ArtifactProofBinding:
		return true
	default:
		return false
	}
}

// ArtifactRef is a typed digest reference. URI and metadata are hints only;
// verification always uses Digest (spec.md §3).
type ArtifactRef struct {
	ArtifactType ArtifactType `json:"artifact_type"`
	Digest       string       `json:"digest"` // "sha256:<hex>"
	URI          string       `json:"uri,omitempty"`
	MediaType    string       `json:"media_type,omitempty"`
	ByteLength   *int64       `json:"byte_length,omitempty"`
}

// Artifact is the canonicalized, content-addressed payload held in the store.
type Artifact struct {
	Ref            ArtifactRef       `json:"ref"`
	ContentType    string            `json:"content_type"`
	CanonicalBytes []byte            `json:"canonical_bytes"`
	Preview        string            `json:"preview"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ArtifactStore defines the interface for content-addressed storage.
type ArtifactStore interface {
	Store(artifact *Artifact) (ArtifactRef, error)
	Resolve(ref ArtifactRef) (*Artifact, error)
	Exists(ref ArtifactRef) (bool, error)
}

// ArtifactContainer is implemented by any document that embeds ArtifactRefs,
// letting the closure walker discover them without reflection.
type ArtifactContainer interface {
	EmbeddedArtifactRefs() []ArtifactRef
}
