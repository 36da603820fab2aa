// Package merkle defines the node type, hash function, empty-subtree cache,
// and the Path/ChangeLog records shared by roll, canopy, and preappend.
package merkle

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Node is a 32-byte hash, either a leaf value or an internal node.
type Node [32]byte

// IsEmpty reports whether n is the all-zero node, used as the leaf-free
// sentinel throughout the tree (an all-zero node may never be appended).
func (n Node) IsEmpty() bool {
	return n == Node{}
}

func (n Node) String() string {
	return hex.EncodeToString(n[:])
}

// Hasher combines a left and right child into their parent. Implementations
// MUST be deterministic and collision resistant; Node values returned by
// Hash are never themselves validated as non-empty.
type Hasher interface {
	Hash(left, right Node) Node
}

// Keccak256Hasher is the domain hash used by the original Solana program:
// a plain two-to-one Keccak-256 over the concatenated children, unsalted.
type Keccak256Hasher struct{}

// Hash implements Hasher.
func (Keccak256Hasher) Hash(left, right Node) Node {
	h := sha3.NewLegacyKeccak256()
	h.Write(left[:])
	h.Write(right[:])
	var out Node
	copy(out[:], h.Sum(nil))
	return out
}

// MaxCachedEmptyLevel is the highest level the package will precompute an
// empty-subtree hash for; it covers every depth the dispatch support matrix
// allows (spec.md §6 tops out at depth 30).
const MaxCachedEmptyLevel = 30

// EmptyCache holds the precomputed empty-subtree hash at each level, where
// level 0 is the empty leaf (the all-zero node) and level i is
// Hash(level i-1, level i-1). It is immutable once built and safe for
// concurrent reads.
type EmptyCache struct {
	levels [MaxCachedEmptyLevel + 1]Node
}

// NewEmptyCache builds the empty-subtree table for the given hasher.
func NewEmptyCache(h Hasher) EmptyCache {
	var c EmptyCache
	for i := 1; i < len(c.levels); i++ {
		c.levels[i] = h.Hash(c.levels[i-1], c.levels[i-1])
	}
	return c
}

// Empty returns the empty-subtree hash at level, which must be in
// [0, MaxCachedEmptyLevel].
func (c EmptyCache) Empty(level int) Node {
	return c.levels[level]
}

// Recompute walks a leaf up to its root given a sibling proof and the
// leaf's index, combining at each level according to the index's bit:
// a 0 bit means the running node is the left child of level i.
func Recompute(h Hasher, leaf Node, proof []Node, index uint64) Node {
	node := leaf
	for i, sibling := range proof {
		if (index>>uint(i))&1 == 0 {
			node = h.Hash(node, sibling)
		} else {
			node = h.Hash(sibling, node)
		}
	}
	return node
}
