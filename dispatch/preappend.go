package dispatch

import (
	"encoding/binary"

	"github.com/jarry-xiao/gummyroll/events"
	"github.com/jarry-xiao/gummyroll/merkle"
	"github.com/jarry-xiao/gummyroll/merkle/preappend"
)

// partitionSize is the encoded byte length of one PreAppend partition
// slot for a source tree of the given depth: a 4-byte proof length
// (padded to 8), a 32-byte leaf, and depth 32-byte proof nodes.
func partitionSize(depth int) int {
	return 8 + 32 + 32*depth
}

// PreAppendBufferSize is the total encoded byte length of a PreAppend
// accumulator for a source tree of the given depth: an 8-byte partition
// count (padded), an 8-byte source sequence number, and N partition
// slots, N = PreAppendPartitionCount(depth).
func PreAppendBufferSize(depth int) int {
	return 16 + PreAppendPartitionCount(depth)*partitionSize(depth)
}

func encodePreAppend(buf []byte, depth int, pa *preappend.PreAppend) {
	partitions := pa.Partitions()
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(partitions)))
	binary.LittleEndian.PutUint64(buf[8:16], pa.SourceSequence())

	slot := partitionSize(depth)
	off := 16
	for _, part := range partitions {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(part.Proof)))
		putNode(buf, off+8, part.Leaf)
		for i, n := range part.Proof {
			putNode(buf, off+8+32+i*32, n)
		}
		off += slot
	}
}

func decodePreAppend(buf []byte, depth, maxPartitions int) (*preappend.PreAppend, error) {
	if len(buf) != PreAppendBufferSize(depth) {
		return nil, ErrBufferTooSmall
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	seq := binary.LittleEndian.Uint64(buf[8:16])

	pa := preappend.New(maxPartitions)
	pa.RestoreSequence(seq)

	slot := partitionSize(depth)
	off := 16
	for i := uint32(0); i < count; i++ {
		proofLen := binary.LittleEndian.Uint32(buf[off : off+4])
		leaf := getNode(buf, off+8)
		proof := make([]merkle.Node, proofLen)
		for j := range proof {
			proof[j] = getNode(buf, off+8+32+j*32)
		}
		pa.RestorePartition(preappend.Partition{Leaf: leaf, Proof: proof})
		off += slot
	}
	return pa, nil
}

// InitOrResetPreAppend (re)initializes a PreAppend accumulator backed by
// preAppendBytes against source's current sequence number, discarding any
// previously accumulated partitions.
func InitOrResetPreAppend(preAppendBytes []byte, source *Session) {
	depth := source.Roll.Depth()
	pa := preappend.New(PreAppendPartitionCount(depth))
	pa.Reset(source.Roll)
	encodePreAppend(preAppendBytes, depth, pa)
}

// PushPreAppendPartition verifies and accumulates one more partition from
// source into the accumulator backed by preAppendBytes.
func PushPreAppendPartition(preAppendBytes []byte, source *Session, rightmostLeaf merkle.Node, rightmostProof []merkle.Node) error {
	depth := source.Roll.Depth()
	pa, err := decodePreAppend(preAppendBytes, depth, PreAppendPartitionCount(depth))
	if err != nil {
		return err
	}
	if err := pa.PushPartition(source.Roll, rightmostLeaf, rightmostProof); err != nil {
		return err
	}
	encodePreAppend(preAppendBytes, depth, pa)
	return nil
}

// AppendSubtree grafts every partition accumulated in preAppendBytes onto
// target, tallest first, emitting one ChangeEvent per partition and
// flushing target's state. Partial progress (and its events) is kept and
// flushed even if a later partition fails.
func AppendSubtree(target, source *Session, preAppendBytes []byte) ([]events.ChangeEvent, error) {
	depth := source.Roll.Depth()
	pa, err := decodePreAppend(preAppendBytes, depth, PreAppendPartitionCount(depth))
	if err != nil {
		return nil, err
	}

	logs, graftErr := preappend.Graft(target.Roll, source.Roll, pa)
	evs := make([]events.ChangeEvent, 0, len(logs))
	// Each grafted partition advanced the sequence number by one, so the
	// i-th log was applied at the sequence number before the graft plus i+1.
	seq := target.Roll.SequenceNumber() - uint64(len(logs))
	for _, cl := range logs {
		seq++
		ev := events.ChangeEvent{SequenceNumber: seq, ChangeLog: cl}
		target.Sink.Emit(ev)
		if err := target.Canopy.UpdateAfterMutation(cl); err != nil {
			target.Flush()
			return evs, err
		}
		evs = append(evs, ev)
	}
	target.Flush()
	return evs, graftErr
}
