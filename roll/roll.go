// Package roll implements the concurrent Merkle roll: an in-place,
// fixed-capacity, append-and-update Merkle tree that lets a bounded number
// of stale caller proofs still land safely via a fast-forward protocol.
package roll

import (
	"errors"
	"math/bits"

	"github.com/golang/glog"

	"github.com/jarry-xiao/gummyroll/merkle"
	"github.com/jarry-xiao/gummyroll/metrics"
)

// Roll is a fixed-capacity, append-and-update Merkle tree of depth Depth
// holding up to 2^Depth leaves, with a BufferSize-entry changelog ring
// buffer that lets proofs generated up to BufferSize mutations ago still
// be repaired and applied (see FastForward).
type Roll struct {
	depth      int
	bufferSize uint64 // capacity of the changelogs ring buffer
	hasher     merkle.Hasher
	emptyCache merkle.EmptyCache
	metrics    metrics.Factory

	sequenceNumber uint64 // count of completed mutations
	activeIndex    uint64 // index into changeLogs of the most recent entry
	filledSize     uint64 // number of changeLogs entries populated so far (<=bufferSize)

	changeLogs     []merkle.ChangeLog // len == bufferSize, a ring buffer
	rightmostProof merkle.Path        // len(Proof) == depth
}

// New allocates a zeroed Roll for the given depth and changelog buffer
// capacity. bufferSize must be a power of two (I4) and depth must be in
// [3, merkle.MaxCachedEmptyLevel] (I5); the dispatch package additionally
// restricts (depth, bufferSize) to its published support matrix before
// ever calling New.
func New(depth int, bufferSize uint64, hasher merkle.Hasher, mf metrics.Factory) (*Roll, error) {
	if depth < 3 || depth > merkle.MaxCachedEmptyLevel {
		return nil, merkle.ErrBadDimensions
	}
	if bufferSize == 0 || bufferSize&(bufferSize-1) != 0 {
		return nil, merkle.ErrBadDimensions
	}
	if mf == nil {
		mf = metrics.Inert{}
	}
	r := &Roll{
		depth:      depth,
		bufferSize: bufferSize,
		hasher:     hasher,
		emptyCache: merkle.NewEmptyCache(hasher),
		metrics:    mf,
		changeLogs: make([]merkle.ChangeLog, bufferSize),
		rightmostProof: merkle.Path{
			Proof: make([]merkle.Node, depth),
		},
	}
	for i := range r.changeLogs {
		r.changeLogs[i].Path = make([]merkle.Node, depth)
	}
	return r, nil
}

// Depth is the number of levels between a leaf and the root.
func (r *Roll) Depth() int { return r.depth }

// BufferSize is the changelog ring buffer's capacity.
func (r *Roll) BufferSize() uint64 { return r.bufferSize }

// Capacity is the maximum number of leaves the tree can hold, 2^Depth.
func (r *Roll) Capacity() uint64 { return uint64(1) << uint(r.depth) }

// Hasher returns the hash function this roll was constructed with.
func (r *Roll) Hasher() merkle.Hasher { return r.hasher }

// SequenceNumber is the count of mutations (append/set_leaf/subtree-append)
// this roll has applied since Initialize.
func (r *Roll) SequenceNumber() uint64 { return r.sequenceNumber }

// RightmostIndex is the count of leaves appended so far (one past the
// highest populated leaf index).
func (r *Roll) RightmostIndex() uint64 { return r.rightmostProof.Index }

// CurrentChangeLog returns the most recently applied changelog entry.
func (r *Roll) CurrentChangeLog() merkle.ChangeLog {
	return r.changeLogs[r.activeIndex]
}

// CurrentRoot returns the root after the most recent mutation.
func (r *Roll) CurrentRoot() merkle.Node {
	return r.changeLogs[r.activeIndex].Root
}

// RightmostProof returns a copy of the current rightmost-leaf proof.
func (r *Roll) RightmostProof() merkle.Path {
	return r.rightmostProof.Clone()
}

// Initialize resets a freshly zeroed Roll to the canonical empty tree of
// its depth, seeding changeLogs[0] with the all-empty root. It fails with
// ErrTreeAlreadyInitialized if the roll's counters are not all zero.
func (r *Roll) Initialize() (merkle.Node, error) {
	if r.sequenceNumber != 0 || r.activeIndex != 0 || r.filledSize != 0 {
		return merkle.Node{}, merkle.ErrTreeAlreadyInitialized
	}
	for i := range r.rightmostProof.Proof {
		r.rightmostProof.Proof[i] = r.emptyCache.Empty(i)
	}
	r.rightmostProof.Index = 0
	r.rightmostProof.Leaf = merkle.Node{}

	path := make([]merkle.Node, r.depth)
	for i := range path {
		path[i] = r.emptyCache.Empty(i)
	}
	root := r.emptyCache.Empty(r.depth)
	r.changeLogs[0] = merkle.ChangeLog{Root: root, Path: path, Index: 0}
	r.filledSize = 1

	glog.V(1).Infof("gummyroll: initialized empty tree depth=%d buffer=%d root=%s", r.depth, r.bufferSize, root)
	return root, nil
}

// InitializeWithRoot seeds a freshly zeroed Roll with a root that is
// trusted to already be correct (e.g. migrated from another host), given
// the rightmost leaf and its proof so later appends can continue from it.
func (r *Roll) InitializeWithRoot(root, rightmostLeaf merkle.Node, proof []merkle.Node, index uint64) (merkle.Node, error) {
	if r.sequenceNumber != 0 || r.activeIndex != 0 || r.filledSize != 0 {
		return merkle.Node{}, merkle.ErrTreeAlreadyInitialized
	}
	full := r.fillInProof(proof)
	if merkle.Recompute(r.hasher, rightmostLeaf, full, index) != root {
		return merkle.Node{}, merkle.ErrInvalidProof
	}
	r.rightmostProof = merkle.Path{Proof: full, Index: index + 1, Leaf: rightmostLeaf}
	r.changeLogs[0] = merkle.ChangeLog{Root: root, Path: make([]merkle.Node, r.depth), Index: uint32(index)}
	r.filledSize = 1
	r.sequenceNumber = 1

	glog.V(1).Infof("gummyroll: initialized tree depth=%d from trusted root=%s at index=%d", r.depth, root, index)
	return root, nil
}

func (r *Roll) fillInProof(proof []merkle.Node) []merkle.Node {
	full := make([]merkle.Node, r.depth)
	n := copy(full, proof)
	for i := n; i < r.depth; i++ {
		full[i] = r.emptyCache.Empty(i)
	}
	return full
}

func hashToParent(h merkle.Hasher, node, sibling merkle.Node, nodeIsLeft bool) merkle.Node {
	if nodeIsLeft {
		return h.Hash(node, sibling)
	}
	return h.Hash(sibling, node)
}

// Append adds a new leaf immediately after the current rightmost leaf,
// extending the compact rightmost proof in O(Depth) hashes without
// rereading any other leaf.
func (r *Roll) Append(leaf merkle.Node) (merkle.Node, error) {
	if leaf.IsEmpty() {
		return merkle.Node{}, merkle.ErrCannotAppendEmpty
	}
	if r.rightmostProof.Index >= r.Capacity() {
		r.metrics.TreeFullRejections().Inc()
		return merkle.Node{}, merkle.ErrTreeFull
	}
	if r.rightmostProof.Index == 0 {
		return r.initializeTreeFromAppend(leaf)
	}

	intersection := trailingZeros64(r.rightmostProof.Index)
	changeList := make([]merkle.Node, r.depth)
	intersectionNode := r.rightmostProof.Leaf
	node := leaf

	for i := 0; i < r.depth; i++ {
		changeList[i] = node
		switch {
		case i < intersection:
			oldBit := ((r.rightmostProof.Index - 1) >> uint(i)) & 1
			intersectionNode = hashToParent(r.hasher, intersectionNode, r.rightmostProof.Proof[i], oldBit == 0)
			empty := r.emptyCache.Empty(i)
			node = hashToParent(r.hasher, node, empty, true)
			r.rightmostProof.Proof[i] = empty
		case i == intersection:
			node = hashToParent(r.hasher, node, intersectionNode, false)
			r.rightmostProof.Proof[intersection] = intersectionNode
		default:
			oldBit := ((r.rightmostProof.Index - 1) >> uint(i)) & 1
			node = hashToParent(r.hasher, node, r.rightmostProof.Proof[i], oldBit == 0)
		}
	}

	r.updateStateFromAppend(node, changeList, r.rightmostProof.Index, leaf)
	glog.V(2).Infof("gummyroll: appended leaf at index=%d new root=%s", r.rightmostProof.Index-1, node)
	return node, nil
}

func (r *Roll) initializeTreeFromAppend(leaf merkle.Node) (merkle.Node, error) {
	oldRoot := merkle.Recompute(r.hasher, merkle.Node{}, r.rightmostProof.Proof, 0)
	if oldRoot != r.emptyCache.Empty(r.depth) {
		return merkle.Node{}, merkle.ErrTreeAlreadyInitialized
	}
	proof := append([]merkle.Node(nil), r.rightmostProof.Proof...)
	return r.tryApplyProof(oldRoot, merkle.Node{}, leaf, proof, 0, false)
}

func (r *Roll) updateStateFromAppend(root merkle.Node, changeList []merkle.Node, rightmostIndex uint64, rightmostLeaf merkle.Node) {
	r.updateInternalCounters()
	r.changeLogs[r.activeIndex] = merkle.ChangeLog{Root: root, Path: changeList, Index: uint32(rightmostIndex)}
	r.rightmostProof.Index = rightmostIndex + 1
	r.rightmostProof.Leaf = rightmostLeaf
}

func (r *Roll) updateInternalCounters() {
	r.activeIndex = (r.activeIndex + 1) % r.bufferSize
	if r.filledSize < r.bufferSize {
		r.filledSize++
	}
	r.sequenceNumber++
	r.metrics.Mutations().Inc()
	r.metrics.SequenceNumber().Set(float64(r.sequenceNumber))
}

// SetLeaf replaces the leaf at index with newLeaf, given a proof of the
// leaf's previous content against currentRoot. currentRoot must still be
// present in the changelog ring buffer (no full-buffer replay is permitted
// for this mutating operation, per the fast-forward protocol's P3/P4).
func (r *Roll) SetLeaf(currentRoot, previousLeaf, newLeaf merkle.Node, proof []merkle.Node, index uint64) (merkle.Node, error) {
	if index > r.rightmostProof.Index {
		return merkle.Node{}, merkle.ErrLeafIndexOutOfBounds
	}
	full := r.fillInProof(proof)
	root, err := r.tryApplyProof(currentRoot, previousLeaf, newLeaf, full, index, false)
	if err == nil {
		glog.V(2).Infof("gummyroll: set leaf at index=%d new root=%s", index, root)
	}
	return root, err
}

// FillEmptyOrAppend writes newLeaf at index if index currently holds the
// empty leaf, or falls back to Append if the proof shows index has since
// been filled by another mutation. This lets a caller race an append
// against other writers without tracking the rightmost index exactly.
func (r *Roll) FillEmptyOrAppend(currentRoot, newLeaf merkle.Node, proof []merkle.Node, index uint64) (merkle.Node, error) {
	full := r.fillInProof(proof)
	root, err := r.tryApplyProof(currentRoot, merkle.Node{}, newLeaf, full, index, false)
	if errors.Is(err, merkle.ErrLeafContentsModified) {
		glog.Warningf("gummyroll: fill_empty_or_append at index=%d found a non-empty leaf, falling back to append", index)
		return r.Append(newLeaf)
	}
	return root, err
}

// ProveLeaf verifies, without mutating the tree, that leaf is the current
// content at index given a proof against currentRoot. Unlike the mutating
// operations above, ProveLeaf allows full-buffer replay: if currentRoot is
// not found in the changelog ring buffer, the proof is still checked by
// fast-forwarding it through every entry in the buffer.
func (r *Roll) ProveLeaf(currentRoot, leaf merkle.Node, proof []merkle.Node, index uint64) error {
	if index > r.rightmostProof.Index {
		return merkle.ErrLeafIndexOutOfBounds
	}
	full := r.fillInProof(proof)
	valid, err := r.checkValidLeaf(currentRoot, leaf, full, index, true)
	if err != nil {
		return err
	}
	if !valid {
		return merkle.ErrInvalidProof
	}
	return nil
}

func (r *Roll) tryApplyProof(currentRoot, leaf, newLeaf merkle.Node, proof []merkle.Node, index uint64, allowInferredProof bool) (merkle.Node, error) {
	valid, err := r.checkValidLeaf(currentRoot, leaf, proof, index, allowInferredProof)
	if err != nil {
		return merkle.Node{}, err
	}
	if !valid {
		return merkle.Node{}, merkle.ErrInvalidProof
	}
	r.updateInternalCounters()
	return r.updateBuffersFromProof(newLeaf, proof, index), nil
}

func (r *Roll) checkValidLeaf(currentRoot, leaf merkle.Node, proof []merkle.Node, index uint64, allowInferredProof bool) (bool, error) {
	slot, found := r.findRootInChangelog(currentRoot)
	useFullBuffer := false
	if !found {
		if !allowInferredProof {
			return false, merkle.ErrRootNotFound
		}
		oldest := (r.activeIndex - (r.filledSize - 1)) % r.bufferSize
		slot = (oldest + r.bufferSize - 1) % r.bufferSize
		useFullBuffer = true
	}

	updated := leaf
	steps := r.fastForwardProof(&updated, proof, index, slot, useFullBuffer)
	r.metrics.FastForwardSteps().Observe(float64(steps))
	if updated != leaf {
		return false, merkle.ErrLeafContentsModified
	}
	root := merkle.Recompute(r.hasher, updated, proof, index)
	return root == r.changeLogs[r.activeIndex].Root, nil
}

// fastForwardProof walks every changelog entry after startSlot up to and
// including the active slot (or, if useFullBuffer, every filled entry in
// the ring buffer) applying each one's fastForward step to (proof, leaf) in
// place. It returns the number of entries walked.
func (r *Roll) fastForwardProof(leaf *merkle.Node, proof []merkle.Node, leafIndex, startSlot uint64, useFullBuffer bool) int {
	idx := startSlot
	steps := 0
	for {
		if !useFullBuffer && idx == r.activeIndex {
			break
		}
		idx = (idx + 1) % r.bufferSize
		cl := &r.changeLogs[idx]
		cl.FastForward(leafIndex, proof, leaf)
		steps++
		if useFullBuffer && idx == r.activeIndex {
			break
		}
	}
	return steps
}

// findRootInChangelog scans the filled portion of the ring buffer, newest
// first, for an entry whose root matches currentRoot.
func (r *Roll) findRootInChangelog(currentRoot merkle.Node) (uint64, bool) {
	for i := uint64(0); i < r.filledSize; i++ {
		j := (r.activeIndex - i) % r.bufferSize
		if r.changeLogs[j].Root == currentRoot {
			return j, true
		}
	}
	return 0, false
}

func (r *Roll) updateBuffersFromProof(newLeaf merkle.Node, proof []merkle.Node, index uint64) merkle.Node {
	cl := &r.changeLogs[r.activeIndex]
	root := replaceAndRecomputePath(r.hasher, cl, index, newLeaf, proof)

	if r.rightmostProof.Index < r.Capacity() {
		if index < r.rightmostProof.Index {
			leaf := r.rightmostProof.Leaf
			cl.FastForward(r.rightmostProof.Index-1, r.rightmostProof.Proof, &leaf)
			r.rightmostProof.Leaf = leaf
		} else {
			copy(r.rightmostProof.Proof, proof)
			r.rightmostProof.Index = index + 1
			r.rightmostProof.Leaf = cl.Path[0]
		}
	}
	return root
}

func replaceAndRecomputePath(h merkle.Hasher, cl *merkle.ChangeLog, index uint64, leaf merkle.Node, proof []merkle.Node) merkle.Node {
	node := leaf
	for i := 0; i < len(proof); i++ {
		cl.Path[i] = node
		if (index>>uint(i))&1 == 0 {
			node = h.Hash(node, proof[i])
		} else {
			node = h.Hash(proof[i], node)
		}
	}
	cl.Root = node
	cl.Index = uint32(index)
	return node
}

func trailingZeros64(v uint64) int {
	return bits.TrailingZeros64(v)
}
