// Package preappend accumulates the rightmost-proof partitions of a
// source roll's binary decomposition so the whole source subtree can be
// grafted onto a target roll in O(depth) hashes per partition, instead of
// replaying every individual leaf append.
package preappend

import (
	"github.com/jarry-xiao/gummyroll/merkle"
	"github.com/jarry-xiao/gummyroll/roll"
)

// Partition is one maximal perfect subtree captured from the source roll:
// its rightmost leaf and the proof from that leaf up to the subtree's own
// root (length equal to the subtree's height).
type Partition struct {
	Leaf  merkle.Node
	Proof []merkle.Node
}

// PreAppend accumulates partitions pushed from a single source roll
// between a Reset and an eventual graft. Partitions must be pushed in
// strictly increasing height order (P1), matching the binary
// decomposition of the source's leaf count from least to most
// significant bit; Graft consumes them in the reverse (tallest-first)
// order, since that is the order in which they can be spliced onto a
// target roll's rightmost edge without disturbing an already-grafted
// partition.
type PreAppend struct {
	maxPartitions  int
	sourceSequence uint64
	partitions     []Partition
}

// New creates an accumulator that rejects more than maxPartitions
// partitions per source roll (N=D+1 for a source of depth D, uniformly —
// see DESIGN.md's resolution of the REDESIGN FLAG in spec.md §9).
func New(maxPartitions int) *PreAppend {
	return &PreAppend{maxPartitions: maxPartitions}
}

// Reset clears any accumulated partitions and records the source roll's
// current sequence number, which every subsequent PushPartition and the
// eventual Graft must match.
func (p *PreAppend) Reset(source *roll.Roll) {
	p.partitions = p.partitions[:0]
	p.sourceSequence = source.SequenceNumber()
}

// SourceSequence is the sequence number recorded at the last Reset.
func (p *PreAppend) SourceSequence() uint64 { return p.sourceSequence }

// RestoreSequence sets the recorded source sequence number directly,
// for the dispatch package's byte-buffer codec to rebuild a PreAppend
// from its serialized form without re-running Reset against a live
// source roll.
func (p *PreAppend) RestoreSequence(seq uint64) { p.sourceSequence = seq }

// RestorePartition appends part verbatim without re-verifying it against
// a source roll, for the dispatch package's byte-buffer codec.
func (p *PreAppend) RestorePartition(part Partition) {
	p.partitions = append(p.partitions, part)
}

// Partitions returns the partitions accumulated so far, in push
// (increasing height) order.
func (p *PreAppend) Partitions() []Partition {
	return p.partitions
}

// PushPartition verifies (rightmostLeaf, rightmostProof) as one maximal
// perfect subtree of source's binary decomposition, and appends it as the
// next partition. rightmostProof's length is the partition's height and
// must be strictly greater than the previous partition's height.
//
// Partitions are pushed smallest-height first, which — since the binary
// decomposition of a leaf count stacks larger subtrees to the left and
// smaller ones to the right — means the first push always names the
// decomposition's rightmost (most recently appended) chunk, and every
// later push names a chunk strictly to its left with real data still
// beyond it on the right.
//
// The two cases need different verification. The first push's chunk IS
// source's current rightmost fragment, so it is checked by comparing
// directly against source.RightmostProof(): same leaf, same proof on the
// levels below the partition's height. A later push's chunk was already
// fully swallowed by some earlier append — roll.Append's intersection
// case stashes a completed subtree's own root at rightmostProof.Proof[h]
// the moment a leaf lands past it, and leaves that slot untouched from
// then on since nothing has since merged at that level — so it is
// checked by recomputing the partition's claimed root and comparing it
// against that stashed value. Padding the unsupplied upper levels with
// Empty(i) and recomputing all the way to source.CurrentRoot(), as a
// one-shot ProveLeaf call would, is wrong for this second case: those
// upper levels are not empty once a taller partition exists to the left.
func (p *PreAppend) PushPartition(source *roll.Roll, rightmostLeaf merkle.Node, rightmostProof []merkle.Node) error {
	if source.SequenceNumber() != p.sourceSequence {
		return merkle.ErrSequenceChanged
	}
	if len(p.partitions) >= p.maxPartitions {
		return merkle.ErrSubtreeInvalidSize
	}
	height := len(rightmostProof)
	if len(p.partitions) > 0 && height <= len(p.partitions[len(p.partitions)-1].Proof) {
		return merkle.ErrSubtreeInvalidSize
	}
	if height > source.Depth() {
		return merkle.ErrSubtreeInvalidSize
	}

	sourceRightmost := source.RightmostProof()
	if len(p.partitions) == 0 {
		if rightmostLeaf != sourceRightmost.Leaf {
			return merkle.ErrInvalidProof
		}
		for i := 0; i < height; i++ {
			if rightmostProof[i] != sourceRightmost.Proof[i] {
				return merkle.ErrInvalidProof
			}
		}
	} else {
		if height >= len(sourceRightmost.Proof) {
			return merkle.ErrSubtreeInvalidSize
		}
		localIndex := uint64(1)<<uint(height) - 1
		subtreeRoot := merkle.Recompute(source.Hasher(), rightmostLeaf, rightmostProof, localIndex)
		if subtreeRoot != sourceRightmost.Proof[height] {
			return merkle.ErrInvalidProof
		}
	}

	proof := append([]merkle.Node(nil), rightmostProof...)
	p.partitions = append(p.partitions, Partition{Leaf: rightmostLeaf, Proof: proof})
	return nil
}

// Graft splices every accumulated partition onto target, tallest first,
// producing one ChangeLog per partition. It fails with ErrSequenceChanged
// if source has mutated since the accumulator was last Reset.
func Graft(target, source *roll.Roll, p *PreAppend) ([]merkle.ChangeLog, error) {
	if source.SequenceNumber() != p.sourceSequence {
		return nil, merkle.ErrSequenceChanged
	}
	logs := make([]merkle.ChangeLog, 0, len(p.partitions))
	for i := len(p.partitions) - 1; i >= 0; i-- {
		part := p.partitions[i]
		height := len(part.Proof)
		leafCount := uint64(1) << uint(height)

		if target.RightmostIndex()+leafCount > target.Capacity() {
			return logs, merkle.ErrTreeFull
		}
		subtreeRoot := merkle.Recompute(target.Hasher(), part.Leaf, part.Proof, leafCount-1)
		if _, err := target.AppendSubtree(subtreeRoot, part.Leaf, leafCount, part.Proof); err != nil {
			return logs, err
		}
		logs = append(logs, target.CurrentChangeLog())
	}
	return logs, nil
}
