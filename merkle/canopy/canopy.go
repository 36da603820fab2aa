// Package canopy caches the top levels of a Merkle tree in a packed node
// buffer so callers can submit proofs shorter than the tree's full depth;
// the dispatcher fills in the remainder from this cache before handing a
// proof to the roll package.
package canopy

import (
	"math/bits"

	"github.com/jarry-xiao/gummyroll/merkle"
)

// Canopy is a packed, heap-indexed cache of the top pathLen levels of a
// tree of the given depth. An empty Canopy (no backing bytes) is valid and
// simply participates as a no-op in every operation, matching a tree that
// carries no canopy at all.
type Canopy struct {
	nodes      []merkle.Node
	depth      int
	pathLen    int // K: number of cached levels, closest to the root
	emptyCache merkle.EmptyCache
}

// New builds a Canopy over buf (a flat, 32-byte-node-per-entry byte
// buffer) for a tree of the given depth. An empty buf is accepted and
// produces a Canopy that caches nothing. A non-empty buf's node count M
// must satisfy M+2 being a power of two no greater than 2^(depth+1),
// which is the packed-heap layout's only valid shape.
func New(buf []byte, depth int, hasher merkle.Hasher) (*Canopy, error) {
	c := &Canopy{depth: depth, emptyCache: merkle.NewEmptyCache(hasher)}
	if len(buf) == 0 {
		return c, nil
	}
	if len(buf)%32 != 0 {
		return nil, merkle.ErrCanopyLengthMismatch
	}
	m := len(buf) / 32
	closest := m + 2
	if closest&(closest-1) != 0 {
		return nil, merkle.ErrCanopyLengthMismatch
	}
	if closest > 1<<uint(depth+1) {
		return nil, merkle.ErrCanopyLengthMismatch
	}
	c.pathLen = bits.TrailingZeros(uint(closest)) - 1
	c.nodes = bytesToNodes(buf)
	return c, nil
}

func bytesToNodes(buf []byte) []merkle.Node {
	nodes := make([]merkle.Node, len(buf)/32)
	for i := range nodes {
		copy(nodes[i][:], buf[i*32:(i+1)*32])
	}
	return nodes
}

// Bytes serializes the canopy's current node values back into a flat
// byte buffer, for a caller to persist.
func (c *Canopy) Bytes() []byte {
	out := make([]byte, len(c.nodes)*32)
	for i, n := range c.nodes {
		copy(out[i*32:(i+1)*32], n[:])
	}
	return out
}

// PathLen is K, the number of levels this canopy caches.
func (c *Canopy) PathLen() int { return c.pathLen }

// heapIndex returns the packed-array index for the node at the given
// level along the path to leafIndex, mirroring the original program's
// PathNode addressing: heap index (1<<(depth-level)) + (leafIndex>>level),
// with the tree root living at heap index 1 (never stored in the canopy,
// since it is always known from the active changelog entry).
func (c *Canopy) heapIndex(level int, leafIndex uint64) uint64 {
	return (uint64(1) << uint(c.depth-level)) + (leafIndex >> uint(level))
}

// UpdateAfterMutation overwrites the canopy's cached entries along the
// path the changelog entry cl just modified, for the top pathLen levels
// (the levels closest to the root — cl.Path's last pathLen entries). It
// is a no-op if the canopy caches nothing.
func (c *Canopy) UpdateAfterMutation(cl merkle.ChangeLog) error {
	if len(c.nodes) == 0 {
		return nil
	}
	for level := c.depth - c.pathLen; level < c.depth; level++ {
		idx := c.heapIndex(level, uint64(cl.Index)) - 2
		if idx >= uint64(len(c.nodes)) {
			return merkle.ErrCanopyLengthMismatch
		}
		c.nodes[idx] = cl.Path[level]
	}
	return nil
}

// FillProof extends a caller-supplied proof (of length depth-pathLen, the
// portion below the canopy) with the cached sibling nodes for the
// remaining pathLen levels, walking from the canopy's entry point for
// leafIndex up toward the root. Any canopy slot that has never been
// written (the all-zero node) is lazily materialized as the empty-subtree
// hash for its level, matching a tree where that whole side is still
// empty. It is a no-op (returns proof unchanged) if the canopy caches
// nothing.
func (c *Canopy) FillProof(leafIndex uint64, proof []merkle.Node) ([]merkle.Node, error) {
	if len(c.nodes) == 0 {
		return proof, nil
	}
	nodeIdx := ((uint64(1) << uint(c.depth)) + leafIndex) >> uint(c.depth-c.pathLen)

	var inferred []merkle.Node
	for nodeIdx > 1 {
		shifted := nodeIdx - 2
		var sibling uint64
		if shifted%2 == 0 {
			sibling = shifted + 1
		} else {
			sibling = shifted - 1
		}
		if sibling >= uint64(len(c.nodes)) {
			return nil, merkle.ErrCanopyLengthMismatch
		}
		level := c.depth - (bits.Len64(nodeIdx) - 1)
		if c.nodes[sibling].IsEmpty() {
			empty := c.emptyCache.Empty(level)
			c.nodes[sibling] = empty
			inferred = append(inferred, empty)
		} else {
			inferred = append(inferred, c.nodes[sibling])
		}
		nodeIdx >>= 1
	}

	overlap := len(proof) + len(inferred) - c.depth
	if overlap < 0 {
		overlap = 0
	}
	if overlap > len(inferred) {
		overlap = len(inferred)
	}
	out := make([]merkle.Node, 0, len(proof)+len(inferred)-overlap)
	out = append(out, proof...)
	out = append(out, inferred[overlap:]...)
	return out, nil
}
