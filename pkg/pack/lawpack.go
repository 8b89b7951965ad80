package pack

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/corridorledger/substrate/pkg/canonicalize"
)

// lawpackDomainTag domain-separates a Lawpack digest from any other
// content hash in the system, per spec.md §4.10.
const lawpackDomainTag = "corridor:lawpack:v1"

// LawpackMetadata identifies the zone and vintage of a legal corpus
// snapshot.
type LawpackMetadata struct {
	JurisdictionID string    `json:"jurisdiction_id"`
	Version        string    `json:"version"`
	PublishedAt    time.Time `json:"published_at"`
}

// LawpackDocument is one canonicalized legal document (XML) in the
// corpus, addressed by its path within the pack.
type LawpackDocument struct {
	Path         string `json:"path"`
	CanonicalXML []byte `json:"-"`
}

// Lawpack is a content-addressed snapshot of a zone's legal corpus:
// metadata, an index of document paths, and the documents themselves,
// per spec.md §4.10. It is held in memory; this package does not read or
// write zip archives.
type Lawpack struct {
	Metadata  LawpackMetadata            `json:"metadata"`
	Index     []string                   `json:"index"`
	Documents map[string]LawpackDocument `json:"-"`
}

// Digest computes the Lawpack's content-addressed digest: metadata's
// canonical bytes, then each document's path and canonical XML bytes in
// sorted path order, all domain-separated and hashed together. Sorting
// by path (rather than hashing Documents as an unordered map) is what
// makes the digest reproducible regardless of build order.
func (lp *Lawpack) Digest() (string, error) {
	paths := make([]string, len(lp.Index))
	copy(paths, lp.Index)
	sort.Strings(paths)

	metaBytes, err := canonicalize.Canonicalize(lp.Metadata)
	if err != nil {
		return "", fmt.Errorf("pack: lawpack metadata canonicalize failed: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(lawpackDomainTag))
	h.Write([]byte{0})
	h.Write(metaBytes)
	for _, path := range paths {
		doc, ok := lp.Documents[path]
		if !ok {
			return "", fmt.Errorf("pack: lawpack index references unknown document %q", path)
		}
		h.Write([]byte{0})
		h.Write([]byte(path))
		h.Write([]byte{0})
		h.Write(doc.CanonicalXML)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyLockEntries resolves every artifact ref in a zone's lock file
// against store, failing closed in strict mode when any digest does not
// resolve, per spec.md §4.10.
func VerifyLockEntries(resolve func(digest string) (bool, error), lockDigests []string, strict bool) ([]string, error) {
	var missing []string
	for _, digest := range lockDigests {
		ok, err := resolve(digest)
		if err != nil {
			return missing, fmt.Errorf("pack: resolving lock entry %s: %w", digest, err)
		}
		if !ok {
			missing = append(missing, digest)
		}
	}
	if strict && len(missing) > 0 {
		return missing, fmt.Errorf("pack: %d lock entries failed to resolve in strict mode", len(missing))
	}
	return missing, nil
}
