package merkle

import "math/bits"

// Path is a rightmost-proof: the sibling of the current rightmost leaf at
// every level, plus the leaf itself and the index one past it (the number
// of leaves appended so far). It is the compact state append() needs to
// extend the tree without rereading every prior leaf.
type Path struct {
	Proof []Node
	Index uint64
	Leaf  Node
}

// Clone returns a deep copy, since Proof is a slice callers may later
// mutate in place (fast-forward does exactly this).
func (p Path) Clone() Path {
	proof := make([]Node, len(p.Proof))
	copy(proof, p.Proof)
	return Path{Proof: proof, Index: p.Index, Leaf: p.Leaf}
}

// ChangeLog is one entry of the roll's ring buffer: the root after a
// mutation, and the new value placed at every level along the modified
// leaf's path (Path[0] is the new leaf itself, Path[i] the new ancestor at
// level i). Index identifies which leaf the mutation touched.
type ChangeLog struct {
	Root  Node
	Path  []Node
	Index uint32
}

// Clone returns a deep copy of the changelog entry.
func (c ChangeLog) Clone() ChangeLog {
	path := make([]Node, len(c.Path))
	copy(path, c.Path)
	return ChangeLog{Root: c.Root, Path: path, Index: c.Index}
}

// FastForward repairs a caller's (proof, leaf) pair in place so that it
// reflects the single mutation recorded by c. If leafIndex is the exact
// leaf c modified, leaf is replaced with the new value c recorded for it
// (the caller compares this against the original leaf afterward to detect
// a genuine conflict). Otherwise, if leafIndex and c.Index are siblings at
// some level Lc (the level at which their index bits first diverge), the
// caller's sibling at that level is replaced with c's new node there —
// every other level of the caller's proof is untouched by this mutation.
func (c *ChangeLog) FastForward(leafIndex uint64, proof []Node, leaf *Node) {
	clIndex := uint64(c.Index)
	if leafIndex == clIndex {
		*leaf = c.Path[0]
		return
	}
	diff := leafIndex ^ clIndex
	lc := bits.Len64(diff) - 1
	if lc >= 0 && lc < len(proof) && lc < len(c.Path) {
		proof[lc] = c.Path[lc]
	}
}
