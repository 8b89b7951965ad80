package pack

import (
	"testing"
	"time"

	"github.com/corridorledger/substrate/pkg/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packWithProvenance(builderID string, slsaLevel int) ResolvedPack {
	return ResolvedPack{
		PackID:      "pack-provenance",
		ContentHash: "sha256:aaaa",
		Manifest: PackManifest{
			Name:    "evidence-pack",
			Version: "1.0.0",
			Provenance: &Provenance{
				Source:    &SourceInfo{Repo: "github.com/corridorledger/packs", Commit: "deadbeef"},
				Build:     &BuildInfo{BuilderID: builderID, BuiltAt: time.Unix(1000, 0).UTC()},
				SLSALevel: slsaLevel,
			},
		},
	}
}

func TestVerifyProvenance_NoPolicyFailsClosed(t *testing.T) {
	v := NewVerifier(nil)
	res := v.verifyProvenance(packWithProvenance("builder-1", 3))
	assert.False(t, res.Passed)
	assert.Contains(t, res.Message, "No provenance policy")
}

func TestVerifyProvenance_AllowedBuilderPasses(t *testing.T) {
	v := NewVerifier(nil)
	v.SetProvenancePolicy(&trust.ProvenancePolicy{
		RequiredSLSAVersion: trust.SLSAProvenancePredicateType,
		AllowedBuilders:     []string{"builder-1"},
		RequireSLSALevel:    2,
	})

	res := v.verifyProvenance(packWithProvenance("builder-1", 3))
	require.True(t, res.Passed, res.Message)
}

func TestVerifyProvenance_UnlistedBuilderFails(t *testing.T) {
	v := NewVerifier(nil)
	v.SetProvenancePolicy(&trust.ProvenancePolicy{
		RequiredSLSAVersion: trust.SLSAProvenancePredicateType,
		AllowedBuilders:     []string{"builder-1"},
	})

	res := v.verifyProvenance(packWithProvenance("builder-evil", 0))
	assert.False(t, res.Passed)
}

func TestVerifyProvenance_BelowRequiredSLSALevelFails(t *testing.T) {
	v := NewVerifier(nil)
	v.SetProvenancePolicy(&trust.ProvenancePolicy{
		AllowedBuilders:  []string{"builder-1"},
		RequireSLSALevel: 4,
	})

	res := v.verifyProvenance(packWithProvenance("builder-1", 1))
	assert.False(t, res.Passed)
	assert.Contains(t, res.Message, "SLSA level")
}

func TestVerifyProvenance_MissingBuildInfoFails(t *testing.T) {
	v := NewVerifier(nil)
	v.SetProvenancePolicy(DefaultProvenancePolicy())

	pack := ResolvedPack{PackID: "pack-no-prov", Manifest: PackManifest{Name: "bare-pack"}}
	res := v.verifyProvenance(pack)
	assert.False(t, res.Passed)
}
