package roll

import (
	"github.com/golang/glog"

	"github.com/jarry-xiao/gummyroll/merkle"
)

// AppendSubtree grafts an entire prebuilt perfect subtree onto the
// rightmost edge of the tree in O(Depth) hashes, instead of replaying
// each of the subtree's leaves individually. subtreeRightmostIndex is the
// subtree's leaf count (its rightmost leaf's 0-based index plus one);
// subtreeRightmostProof is that leaf's proof up to the subtree's own
// root, which must equal subtreeRoot.
func (r *Roll) AppendSubtree(subtreeRoot, subtreeRightmostLeaf merkle.Node, subtreeRightmostIndex uint64, subtreeRightmostProof []merkle.Node) (merkle.Node, error) {
	if r.rightmostProof.Index >= r.Capacity() {
		r.metrics.TreeFullRejections().Inc()
		return merkle.Node{}, merkle.ErrTreeFull
	}
	if merkle.Recompute(r.hasher, subtreeRightmostLeaf, subtreeRightmostProof, subtreeRightmostIndex-1) != subtreeRoot {
		return merkle.Node{}, merkle.ErrInvalidProof
	}

	if r.rightmostProof.Index == 0 {
		if len(subtreeRightmostProof) >= r.depth {
			return merkle.Node{}, merkle.ErrSubtreeInvalidSize
		}
		return r.initializeTreeFromSubtreeAppend(subtreeRightmostLeaf, subtreeRightmostIndex, subtreeRightmostProof)
	}

	intersection := trailingZeros64(r.rightmostProof.Index)
	height := len(subtreeRightmostProof)
	if height > intersection {
		return merkle.Node{}, merkle.ErrSubtreeInvalidSize
	}

	changeList := make([]merkle.Node, r.depth)
	intersectionNode := r.rightmostProof.Leaf
	node := subtreeRightmostLeaf

	for i := 0; i < r.depth; i++ {
		changeList[i] = node
		switch {
		case i < intersection:
			oldBit := ((r.rightmostProof.Index - 1) >> uint(i)) & 1
			intersectionNode = hashToParent(r.hasher, intersectionNode, r.rightmostProof.Proof[i], oldBit == 0)
			if i < height {
				newBit := ((subtreeRightmostIndex - 1) >> uint(i)) & 1
				node = hashToParent(r.hasher, node, subtreeRightmostProof[i], newBit == 0)
				r.rightmostProof.Proof[i] = subtreeRightmostProof[i]
			} else {
				empty := r.emptyCache.Empty(i)
				node = hashToParent(r.hasher, node, empty, true)
				r.rightmostProof.Proof[i] = empty
			}
		case i == intersection:
			node = hashToParent(r.hasher, node, intersectionNode, false)
			r.rightmostProof.Proof[intersection] = intersectionNode
		default:
			oldBit := ((r.rightmostProof.Index - 1) >> uint(i)) & 1
			node = hashToParent(r.hasher, node, r.rightmostProof.Proof[i], oldBit == 0)
		}
	}

	r.updateStateFromAppend(node, changeList, r.rightmostProof.Index+subtreeRightmostIndex-1, subtreeRightmostLeaf)
	glog.V(2).Infof("gummyroll: grafted subtree of %d leaves, new root=%s", subtreeRightmostIndex, node)
	return node, nil
}

func (r *Roll) initializeTreeFromSubtreeAppend(subtreeRightmostLeaf merkle.Node, subtreeRightmostIndex uint64, subtreeRightmostProof []merkle.Node) (merkle.Node, error) {
	changeList := make([]merkle.Node, r.depth)
	node := subtreeRightmostLeaf

	for i := 0; i < r.depth; i++ {
		changeList[i] = node
		if i < len(subtreeRightmostProof) {
			newBit := ((subtreeRightmostIndex - 1) >> uint(i)) & 1
			node = hashToParent(r.hasher, node, subtreeRightmostProof[i], newBit == 0)
			r.rightmostProof.Proof[i] = subtreeRightmostProof[i]
		} else {
			node = hashToParent(r.hasher, node, r.rightmostProof.Proof[i], true)
		}
	}

	r.updateStateFromAppend(node, changeList, subtreeRightmostIndex-1, subtreeRightmostLeaf)
	glog.V(2).Infof("gummyroll: initialized tree from %d-leaf subtree, root=%s", subtreeRightmostIndex, node)
	return node, nil
}
