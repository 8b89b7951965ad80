package artifacts

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/corridorledger/substrate/pkg/canonicalize"
	"github.com/corridorledger/substrate/pkg/interfaces"
)

// ArtifactStore is the content-addressed facade over a Backend blob store.
// It implements interfaces.ArtifactStore and additionally exposes graph
// closure walking and witness-bundle export per spec.md §4.2.
//
// The backend is pure content-addressed bytes keyed by their own hash, so
// ArtifactStore keeps a small metadata catalog (type, content-type,
// preview, caller metadata) in memory, indexed by digest. This mirrors how
// the teacher's Registry separated envelope persistence from blob storage;
// here the catalog is the thing that lets Resolve hand back a fully typed
// Artifact instead of a bag of bytes.
type ArtifactStore struct {
	backend Store

	mu      sync.RWMutex
	catalog map[string]*interfaces.Artifact // digest -> artifact (content + metadata)
}

// NewArtifactStore wraps a content-addressed Backend.
func NewArtifactStore(backend Store) *ArtifactStore {
	return &ArtifactStore{
		backend: backend,
		catalog: make(map[string]*interfaces.Artifact),
	}
}

var _ interfaces.ArtifactStore = (*ArtifactStore)(nil)

// Store persists artifact. Storage is idempotent: storing the same content
// under the same type twice is a no-op on the second call. Storing the
// same digest under a different ArtifactType than previously recorded is
// an ambiguous resolution and is refused.
func (s *ArtifactStore) Store(artifact *interfaces.Artifact) (interfaces.ArtifactRef, error) {
	if artifact == nil {
		return interfaces.ArtifactRef{}, fmt.Errorf("artifacts: nil artifact")
	}
	if !artifact.Ref.ArtifactType.IsValid() {
		return interfaces.ArtifactRef{}, fmt.Errorf("artifacts: unrecognized artifact type %q", artifact.Ref.ArtifactType)
	}

	digest, err := s.backend.Store(context.Background(), artifact.CanonicalBytes)
	if err != nil {
		return interfaces.ArtifactRef{}, fmt.Errorf("artifacts: backend store failed: %w", err)
	}
	if artifact.Ref.Digest != "" && artifact.Ref.Digest != digest {
		return interfaces.ArtifactRef{}, fmt.Errorf("artifacts: declared digest %s does not match content digest %s", artifact.Ref.Digest, digest)
	}
	artifact.Ref.Digest = digest

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.catalog[digest]; ok && existing.Ref.ArtifactType != artifact.Ref.ArtifactType {
		return interfaces.ArtifactRef{}, fmt.Errorf("%w: digest=%s recorded_type=%s requested_type=%s",
			ErrAmbiguousResolution, digest, existing.Ref.ArtifactType, artifact.Ref.ArtifactType)
	}
	s.catalog[digest] = artifact

	return artifact.Ref, nil
}

// Resolve returns the full Artifact for ref, or MissingArtifactError if the
// store has never recorded it, or ErrAmbiguousResolution if the digest is
// known under a conflicting ArtifactType.
func (s *ArtifactStore) Resolve(ref interfaces.ArtifactRef) (*interfaces.Artifact, error) {
	s.mu.RLock()
	cataloged, ok := s.catalog[ref.Digest]
	s.mu.RUnlock()

	if ok {
		if cataloged.Ref.ArtifactType != ref.ArtifactType {
			return nil, fmt.Errorf("%w: digest=%s recorded_type=%s requested_type=%s",
				ErrAmbiguousResolution, ref.Digest, cataloged.Ref.ArtifactType, ref.ArtifactType)
		}
		return cataloged, nil
	}

	// Fall back to the blob backend: content exists but was never routed
	// through Store (e.g. ingested out of band). Reconstruct a minimal
	// Artifact without caller metadata.
	body, err := s.backend.Get(context.Background(), ref.Digest)
	if err != nil {
		return nil, &MissingArtifactError{ArtifactType: ref.ArtifactType, Digest: ref.Digest}
	}
	return &interfaces.Artifact{
		Ref:            ref,
		CanonicalBytes: body,
	}, nil
}

// Exists reports whether ref's digest is known to the store, independent
// of whether the recorded type matches.
func (s *ArtifactStore) Exists(ref interfaces.ArtifactRef) (bool, error) {
	s.mu.RLock()
	_, ok := s.catalog[ref.Digest]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}
	return s.backend.Exists(context.Background(), ref.Digest)
}

// GraphClosure walks every ArtifactRef transitively embedded in root's
// content, recording found/missing nodes, depth, and node count. In strict
// mode every found node's content digest is recomputed and must match its
// Ref.Digest.
func (s *ArtifactStore) GraphClosure(root interfaces.ArtifactRef, strict bool) (*ClosureReport, error) {
	report := &ClosureReport{RootDigest: root.Digest, Strict: strict}
	visited := make(map[string]bool)

	var walk func(ref interfaces.ArtifactRef, depth int) error
	walk = func(ref interfaces.ArtifactRef, depth int) error {
		if visited[ref.Digest] {
			return nil
		}
		visited[ref.Digest] = true
		if depth > report.MaxDepth {
			report.MaxDepth = depth
		}

		artifact, err := s.Resolve(ref)
		if err != nil {
			report.Missing = append(report.Missing, ClosureNode{Ref: ref, Depth: depth, Missing: true})
			return nil
		}

		if strict {
			recomputed := canonicalize.HashBytes(artifact.CanonicalBytes)
			if recomputed != ref.Digest {
				return fmt.Errorf("artifacts: strict closure digest mismatch at %s: recomputed %s", ref.Digest, recomputed)
			}
		}

		report.Found = append(report.Found, ClosureNode{Ref: artifact.Ref, Depth: depth, Missing: false})
		report.NodeCount++

		for _, embedded := range embeddedRefs(artifact.CanonicalBytes) {
			if err := walk(embedded, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, err
	}
	return report, nil
}

// embeddedRefs scans canonical JSON bytes for any object shaped like an
// ArtifactRef (an "artifact_type" string paired with a "digest" string),
// at any nesting depth. This lets closure walking work over plain JSON
// documents without requiring Go-side ArtifactContainer implementations.
func embeddedRefs(canonicalBytes []byte) []interfaces.ArtifactRef {
	var generic interface{}
	if err := json.Unmarshal(canonicalBytes, &generic); err != nil {
		return nil
	}
	var refs []interfaces.ArtifactRef
	var scan func(v interface{})
	scan = func(v interface{}) {
		switch t := v.(type) {
		case map[string]interface{}:
			typ, hasType := t["artifact_type"].(string)
			digest, hasDigest := t["digest"].(string)
			if hasType && hasDigest && interfaces.ArtifactType(typ).IsValid() {
				refs = append(refs, interfaces.ArtifactRef{
					ArtifactType: interfaces.ArtifactType(typ),
					Digest:       digest,
				})
			}
			for _, val := range t {
				scan(val)
			}
		case []interface{}:
			for _, elem := range t {
				scan(elem)
			}
		}
	}
	scan(generic)
	return refs
}

// ExportWitnessBundle zips the closure's found artifacts' content plus a
// manifest into a self-contained archive: any party holding the zip can
// re-verify every node's digest without access to the live store. Entries
// are stored under "blobs/<digest-hex>" (the ":" in "sha256:<hex>" is not
// zip-path safe).
func (s *ArtifactStore) ExportWitnessBundle(report *ClosureReport) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	manifest := WitnessManifest{
		RootDigest: report.RootDigest,
		Entries:    append(append([]ClosureNode{}, report.Found...), report.Missing...),
		Strict:     report.Strict,
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("artifacts: witness manifest marshal failed: %w", err)
	}
	mw, err := zw.Create("manifest.json")
	if err != nil {
		return nil, fmt.Errorf("artifacts: witness bundle create manifest entry failed: %w", err)
	}
	if _, err := mw.Write(manifestBytes); err != nil {
		return nil, fmt.Errorf("artifacts: witness bundle write manifest failed: %w", err)
	}

	for _, node := range report.Found {
		artifact, err := s.Resolve(node.Ref)
		if err != nil {
			return nil, fmt.Errorf("artifacts: witness bundle resolving %s: %w", node.Ref.Digest, err)
		}
		bw, err := zw.Create(blobEntryName(node.Ref.Digest))
		if err != nil {
			return nil, fmt.Errorf("artifacts: witness bundle create blob entry failed: %w", err)
		}
		if _, err := bw.Write(artifact.CanonicalBytes); err != nil {
			return nil, fmt.Errorf("artifacts: witness bundle write blob failed: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("artifacts: witness bundle close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func blobEntryName(digest string) string {
	return "blobs/" + strings.ReplaceAll(digest, ":", "_")
}
