package dispatch

import (
	"encoding/binary"

	"github.com/jarry-xiao/gummyroll/merkle"
	"github.com/jarry-xiao/gummyroll/roll"
)

// changeLogSize is the encoded byte length of one ChangeLog entry for a
// tree of the given depth: a 32-byte root, depth 32-byte path nodes, and
// a 4-byte index (padded to 8 for alignment, mirroring the original
// packed Rust struct's repr).
func changeLogSize(depth int) int {
	return 32 + 32*depth + 8
}

// rightmostProofSize is the encoded byte length of the rightmost-proof
// record for a tree of the given depth: depth 32-byte proof nodes, a
// 4-byte (padded to 8) index, and a 32-byte leaf.
func rightmostProofSize(depth int) int {
	return 32*depth + 32 + 8
}

// RollBodySize is the total encoded byte length of a roll's body (not
// including the Header) for the given (depth, bufferSize): an 24-byte
// counters block, bufferSize changelog entries, and one rightmost-proof
// record.
func RollBodySize(depth int, bufferSize uint64) int {
	return 24 + int(bufferSize)*changeLogSize(depth) + rightmostProofSize(depth)
}

func putNode(buf []byte, off int, n merkle.Node) {
	copy(buf[off:off+32], n[:])
}

func getNode(buf []byte, off int) merkle.Node {
	var n merkle.Node
	copy(n[:], buf[off:off+32])
	return n
}

// encodeRoll serializes s into buf, which must be at least
// RollBodySize(depth, bufferSize) bytes.
func encodeRoll(buf []byte, depth int, bufferSize uint64, s roll.State) {
	binary.LittleEndian.PutUint64(buf[0:8], s.SequenceNumber)
	binary.LittleEndian.PutUint64(buf[8:16], s.ActiveIndex)
	binary.LittleEndian.PutUint64(buf[16:24], s.FilledSize)

	clSize := changeLogSize(depth)
	off := 24
	for _, cl := range s.ChangeLogs {
		putNode(buf, off, cl.Root)
		for i, n := range cl.Path {
			putNode(buf, off+32+i*32, n)
		}
		binary.LittleEndian.PutUint32(buf[off+32+32*depth:], cl.Index)
		off += clSize
	}

	for i, n := range s.RightmostProof.Proof {
		putNode(buf, off+i*32, n)
	}
	// Layout matches spec.md's documented rightmost_proof wire format:
	// proof:[32]*D, index:u32, leaf:[32], _pad:u32 — index before leaf.
	binary.LittleEndian.PutUint32(buf[off+32*depth:], uint32(s.RightmostProof.Index))
	putNode(buf, off+32*depth+4, s.RightmostProof.Leaf)
	_ = bufferSize
}

// decodeRoll reads a roll.State out of buf, which must be at least
// RollBodySize(depth, bufferSize) bytes.
func decodeRoll(buf []byte, depth int, bufferSize uint64) roll.State {
	var s roll.State
	s.SequenceNumber = binary.LittleEndian.Uint64(buf[0:8])
	s.ActiveIndex = binary.LittleEndian.Uint64(buf[8:16])
	s.FilledSize = binary.LittleEndian.Uint64(buf[16:24])

	clSize := changeLogSize(depth)
	off := 24
	s.ChangeLogs = make([]merkle.ChangeLog, bufferSize)
	for i := range s.ChangeLogs {
		cl := merkle.ChangeLog{Path: make([]merkle.Node, depth)}
		cl.Root = getNode(buf, off)
		for j := range cl.Path {
			cl.Path[j] = getNode(buf, off+32+j*32)
		}
		cl.Index = binary.LittleEndian.Uint32(buf[off+32+32*depth:])
		s.ChangeLogs[i] = cl
		off += clSize
	}

	s.RightmostProof.Proof = make([]merkle.Node, depth)
	for i := range s.RightmostProof.Proof {
		s.RightmostProof.Proof[i] = getNode(buf, off+i*32)
	}
	s.RightmostProof.Index = uint64(binary.LittleEndian.Uint32(buf[off+32*depth:]))
	s.RightmostProof.Leaf = getNode(buf, off+32*depth+4)
	return s
}
