// Package canonicalize implements the corridor substrate's canonical byte
// encoding: RFC 8785 (JSON Canonicalization Scheme) with the normative
// coercions spec.md §4.1 layers on top — non-integer floats are rejected
// rather than silently rounded, and RFC-3339 timestamps are normalized to
// UTC, Z-suffixed, whole-second precision before encoding. CanonicalBytes
// is the input type of Digest. pkg/crypto's Signer.Sign takes a plain
// []byte; crypto.SignCanonical is the helper that canonicalizes first.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gowebpki/jcs"
)

// CanonicalBytes is the opaque, deterministic byte encoding produced by
// Canonicalize. Digest requires this type. Its underlying type is []byte,
// so the compiler does not stop a caller from passing other bytes to a
// []byte parameter such as crypto.Signer.Sign.
type CanonicalBytes []byte

// Sentinel errors per spec.md §4.1. All are fatal: canonicalization never
// silently loses precision.
var (
	ErrNonIntegerFloat  = errors.New("canonicalize: value is not representable as a signed or unsigned 64-bit integer")
	ErrInvalidUTF8      = errors.New("canonicalize: string is not valid UTF-8")
	ErrUnsupportedValue = errors.New("canonicalize: value type has no canonical representation")
)

// rfc3339Layouts are tried in order when detecting whether a string is a
// timestamp eligible for normalization.
var rfc3339Layouts = []string{time.RFC3339Nano, time.RFC3339}

// ContentDigest is a typed SHA-256 content digest. Its String form is
// "sha256:<hex>", the wire format used throughout ArtifactRef.Digest.
type ContentDigest struct {
	sum [sha256.Size]byte
}

func (d ContentDigest) String() string {
	return "sha256:" + hex.EncodeToString(d.sum[:])
}

// Hex returns the bare lowercase hex digest, with no algorithm prefix.
func (d ContentDigest) Hex() string {
	return hex.EncodeToString(d.sum[:])
}

func (d ContentDigest) Equal(other ContentDigest) bool {
	return d.sum == other.sum
}

// Canonicalize converts an arbitrary Go value into CanonicalBytes. v is
// first passed through encoding/json (so struct tags are honored), then
// decoded into a generic tree with json.Number preserved, then normalized
// per the coercions above, then serialized in canonical form (sorted
// object keys, no HTML escaping, compact, no insignificant whitespace).
func Canonicalize(v interface{}) (CanonicalBytes, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: pre-marshal failed: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(intermediate))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: intermediate decode failed: %w", err)
	}

	normalized, err := normalize(generic)
	if err != nil {
		return nil, err
	}

	b, err := marshalCanonical(normalized)
	if err != nil {
		return nil, err
	}
	return CanonicalBytes(b), nil
}

// Digest computes the content digest of already-canonical bytes.
func Digest(cb CanonicalBytes) ContentDigest {
	return ContentDigest{sum: sha256.Sum256(cb)}
}

// CanonicalHash is a convenience wrapper: Canonicalize followed by Digest.
func CanonicalHash(v interface{}) (ContentDigest, error) {
	cb, err := Canonicalize(v)
	if err != nil {
		return ContentDigest{}, err
	}
	return Digest(cb), nil
}

// JCS returns the same canonical byte encoding as Canonicalize, exposed
// under the library's historical name for callers that only need raw
// bytes rather than the CanonicalBytes type.
func JCS(v interface{}) ([]byte, error) {
	cb, err := Canonicalize(v)
	if err != nil {
		return nil, err
	}
	return []byte(cb), nil
}

// JCSString is JCS with the result converted to a string.
func JCSString(v interface{}) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// HashBytes computes the "sha256:<hex>" digest of raw, already-encoded
// bytes, bypassing canonicalization. Used for hashing opaque blobs (e.g.
// pack archive bodies) that are not themselves JSON documents.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// LibraryJCSBytes runs the same normalization pass as Canonicalize, then
// hands the result to the gowebpki/jcs library for the literal RFC 8785
// byte encoding. It must agree byte-for-byte with Canonicalize's own
// encoder for every normalized value; tests assert this parity directly
// against the third-party implementation.
func LibraryJCSBytes(v interface{}) ([]byte, error) {
	cb, err := Canonicalize(v)
	if err != nil {
		return nil, err
	}
	out, err := jcs.Transform([]byte(cb))
	if err != nil {
		return nil, fmt.Errorf("canonicalize: jcs library transform failed: %w", err)
	}
	return out, nil
}

// normalize walks a decoded JSON tree and applies the spec's coercions.
// Maps and slices keep Go-native types (map[string]interface{},
// []interface{}); numbers become int64 or uint64; strings are UTF-8
// validated and, when they parse as RFC-3339, normalized.
func normalize(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case json.Number:
		return normalizeNumber(t)
	case string:
		return normalizeString(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, elem := range t {
			n, err := normalize(elem)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if !utf8.ValidString(k) {
				return nil, fmt.Errorf("%w: object key %q", ErrInvalidUTF8, k)
			}
			n, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// normalizeNumber accepts only values representable as int64 or uint64.
// Integral floats (e.g. "3.0", "1e2") are accepted if they fit; anything
// with a nonzero fractional part, or out of both ranges, is rejected.
func normalizeNumber(n json.Number) (interface{}, error) {
	s := n.String()

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%w: %s", ErrNonIntegerFloat, s)
	}
	switch {
	case f >= 0 && f < float64(math.MaxUint64):
		return uint64(f), nil
	case f < 0 && f >= -float64(math.MaxInt64)-1:
		return int64(f), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNonIntegerFloat, s)
	}
}

// normalizeString validates UTF-8 and, when the string parses as an
// RFC-3339 timestamp, rewrites it to UTC with a Z suffix and whole-second
// precision so that "...Z" and "...000+00:00" forms of the same instant
// produce identical canonical bytes.
func normalizeString(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUTF8, s)
	}
	if t, ok := parseTimestamp(s); ok {
		return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z"), nil
	}
	return s, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range rfc3339Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// marshalCanonical serializes a normalized tree: sorted object keys
// (lexicographic UTF-8 code-unit order, matching Go's native string
// comparison), preserved array order, no HTML escaping, no insignificant
// whitespace.
func marshalCanonical(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
		return nil
	case uint64:
		buf.WriteString(strconv.FormatUint(t, 10))
		return nil
	case string:
		return writeCanonicalString(buf, t)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// writeCanonicalString encodes a string with JSON quoting/escaping but
// without HTML escaping, per RFC 8785.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var enc bytes.Buffer
	jenc := json.NewEncoder(&enc)
	jenc.SetEscapeHTML(false)
	if err := jenc.Encode(s); err != nil {
		return fmt.Errorf("canonicalize: string encode failed: %w", err)
	}
	buf.Write(bytes.TrimSuffix(enc.Bytes(), []byte{'\n'}))
	return nil
}
