package canonicalize

import (
	"fmt"
	"unicode/utf8"

	"github.com/corridorledger/substrate/pkg/interfaces"
)

const maxPreviewLen = 256

// BuildArtifact canonicalizes raw and wraps it as an interfaces.Artifact
// addressed under artifactType. Structured values (anything that is not a
// string or []byte) are run through Canonicalize so the digest commits to
// the RFC 8785 + coercion form; strings and byte blobs are content-addressed
// as-is since they carry no canonicalizable structure of their own.
func BuildArtifact(artifactType interfaces.ArtifactType, raw interface{}) (*interfaces.Artifact, error) {
	if !artifactType.IsValid() {
		return nil, fmt.Errorf("canonicalize: unrecognized artifact type %q", artifactType)
	}

	var body []byte
	var contentType string

	switch v := raw.(type) {
	case string:
		if !utf8.ValidString(v) {
			return nil, fmt.Errorf("%w: artifact body", ErrInvalidUTF8)
		}
		contentType = "text/plain"
		body = []byte(v)
	case []byte:
		contentType = "application/octet-stream"
		body = v
	default:
		contentType = "application/json"
		cb, err := Canonicalize(v)
		if err != nil {
			return nil, fmt.Errorf("canonicalize: building %s artifact: %w", artifactType, err)
		}
		body = []byte(cb)
	}

	digest := HashBytes(body)
	length := int64(len(body))

	return &interfaces.Artifact{
		Ref: interfaces.ArtifactRef{
			ArtifactType: artifactType,
			Digest:       digest,
			MediaType:    contentType,
			ByteLength:   &length,
		},
		ContentType:    contentType,
		CanonicalBytes: body,
		Preview:        preview(body),
		Metadata:       map[string]string{},
	}, nil
}

// preview truncates body to a deterministic, human-scannable prefix for
// logging and audit display. Truncation is a raw byte cut, not
// UTF-8-boundary aware; previews are diagnostic only and never compared.
func preview(body []byte) string {
	if len(body) <= maxPreviewLen {
		return string(body)
	}
	return string(body[:maxPreviewLen]) + "..."
}
