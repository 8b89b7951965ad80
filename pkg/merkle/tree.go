// Package merkle builds a fixed, rebuildable-from-full-set Merkle tree over
// a set of path-addressed values. Unlike pkg/mmr (an append-only log with
// bit-exact domain-separated byte prefixes), this tree is recomputed whole
// each time from its full leaf set — the shape the compliance tensor
// commitment (spec.md §4.9) wants, since a tensor's cells can be rewritten
// in place rather than only appended.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/corridorledger/substrate/pkg/canonicalize"
)

type MerkleLeaf struct {
	Path      string
	LeafBytes []byte
	LeafHash  string
}

type MerkleTree struct {
	Leaves []MerkleLeaf
	Root   string
	Nodes  [][]string // levels of node hashes
}

// BuildMerkleTree constructs a Merkle Tree from a map of path->value.
func BuildMerkleTree(data map[string]interface{}) (*MerkleTree, error) {
	// 1. Extract and sort paths
	paths := make([]string, 0, len(data))
	for k := range data {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	// 2. Build leaves
	leaves := make([]MerkleLeaf, len(paths))
	for i, path := range paths {
		value := data[path]

		canBytes, err := canonicalize.Canonicalize(value)
		if err != nil {
			return nil, err
		}

		leafBytes := buildLeafBytes(path, canBytes)
		leaves[i] = MerkleLeaf{
			Path:      path,
			LeafBytes: leafBytes,
			LeafHash:  sha256Hex(leafBytes),
		}
	}

	// 3. Build tree bottom-up
	if len(leaves) == 0 {
		return &MerkleTree{Root: ""}, nil // Or specific empty root? Spec doesn't say.
	}

	tree := &MerkleTree{Leaves: leaves}
	currentLevel := extractHashes(leaves)

	for len(currentLevel) > 1 {
		tree.Nodes = append(tree.Nodes, currentLevel)
		currentLevel = buildNextLevel(currentLevel)
	}

	tree.Root = currentLevel[0]
	// Store root level too? Spec implies Nodes stores levels.
	tree.Nodes = append(tree.Nodes, currentLevel)

	return tree, nil
}

func buildLeafBytes(path string, canonical []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("corridor:tensor:leaf:v1")
	buf.WriteByte(0)
	buf.WriteString(path)
	buf.WriteByte(0)
	buf.Write(canonical)
	return buf.Bytes()
}

func extractHashes(leaves []MerkleLeaf) []string {
	hashes := make([]string, len(leaves))
	for i, l := range leaves {
		hashes[i] = l.LeafHash
	}
	return hashes
}

func buildNextLevel(hashes []string) []string {
	count := len(hashes)
	if count%2 != 0 {
		hashes = append(hashes, hashes[count-1]) // Duplicate last
		count++
	}

	nextLevel := make([]string, count/2)
	for i := 0; i < count; i += 2 {
		nextLevel[i/2] = buildNodeHash(hashes[i], hashes[i+1])
	}
	return nextLevel
}

func buildNodeHash(left, right string) string {
	var buf bytes.Buffer
	buf.WriteString("corridor:tensor:node:v1")
	buf.WriteByte(0)
	buf.Write(hexToBytes(left))
	buf.Write(hexToBytes(right))
	return sha256Hex(buf.Bytes())
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func hexToBytes(s string) []byte {
	b, _ := hex.DecodeString(s)
	return b
}
