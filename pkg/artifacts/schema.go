package artifacts

import (
	"fmt"

	"github.com/corridorledger/substrate/pkg/interfaces"
)

// ErrAmbiguousResolution is returned when a digest has already been
// registered under a different ArtifactType than the one requested — the
// store refuses to silently pick one interpretation over the other.
var ErrAmbiguousResolution = fmt.Errorf("artifacts: ambiguous resolution")

// MissingArtifactError reports a (type, digest) pair that the store has
// never seen.
type MissingArtifactError struct {
	ArtifactType interfaces.ArtifactType
	Digest       string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("artifacts: missing artifact type=%s digest=%s", e.ArtifactType, e.Digest)
}

// ClosureNode is one visited artifact in a graph-closure walk.
type ClosureNode struct {
	Ref     interfaces.ArtifactRef `json:"ref"`
	Depth   int                    `json:"depth"`
	Missing bool                   `json:"missing"`
}

// ClosureReport summarizes an artifact-reference graph walk starting from
// a root artifact or document, per spec.md §4.2.
type ClosureReport struct {
	RootDigest string        `json:"root_digest"`
	Found      []ClosureNode `json:"found"`
	Missing    []ClosureNode `json:"missing"`
	NodeCount  int           `json:"node_count"`
	MaxDepth   int           `json:"max_depth"`
	Strict     bool          `json:"strict"`
}

// WitnessManifest is the self-describing index bundled alongside a zipped
// closure export, letting an offline verifier reconstruct and re-check the
// closure without contacting the live store.
type WitnessManifest struct {
	RootDigest string        `json:"root_digest"`
	Entries    []ClosureNode `json:"entries"`
	Strict     bool          `json:"strict"`
}
