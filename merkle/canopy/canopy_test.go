package canopy

import (
	"testing"

	"github.com/jarry-xiao/gummyroll/merkle"
)

func TestNewRejectsBadLength(t *testing.T) {
	if _, err := New(make([]byte, 31), 2, merkle.Keccak256Hasher{}); err != merkle.ErrCanopyLengthMismatch {
		t.Errorf("New with non-multiple-of-32 length error = %v, want ErrCanopyLengthMismatch", err)
	}
	// 3 nodes -> M+2=5, not a power of two.
	if _, err := New(make([]byte, 96), 2, merkle.Keccak256Hasher{}); err != merkle.ErrCanopyLengthMismatch {
		t.Errorf("New with non-power-of-two M+2 error = %v, want ErrCanopyLengthMismatch", err)
	}
}

func TestNewEmptyBufIsValidNoOp(t *testing.T) {
	c, err := New(nil, 4, merkle.Keccak256Hasher{})
	if err != nil {
		t.Fatalf("New(nil) error: %v", err)
	}
	if c.PathLen() != 0 {
		t.Errorf("PathLen() = %d, want 0", c.PathLen())
	}
	proof := []merkle.Node{{1}, {2}, {3}, {4}}
	got, err := c.FillProof(0, proof)
	if err != nil {
		t.Fatalf("FillProof error: %v", err)
	}
	if len(got) != len(proof) {
		t.Errorf("FillProof on empty canopy changed proof length: got %d, want %d", len(got), len(proof))
	}
}

func TestFillProofUsesCachedSiblingAndMaterializesEmpty(t *testing.T) {
	hasher := merkle.Keccak256Hasher{}
	// depth 2, M=2 nodes -> M+2=4=2^2 -> pathLen=1.
	c, err := New(make([]byte, 64), 2, hasher)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if c.PathLen() != 1 {
		t.Fatalf("PathLen() = %d, want 1", c.PathLen())
	}

	right := merkle.Node{0xBB}
	c.nodes[1] = right // covers leaves 2-3; slot 0 (leaves 0-1) is left unmaterialized.

	level0Sibling := merkle.Node{0x01}
	proof, err := c.FillProof(0, []merkle.Node{level0Sibling})
	if err != nil {
		t.Fatalf("FillProof() error: %v", err)
	}
	if len(proof) != 2 {
		t.Fatalf("FillProof() length = %d, want 2", len(proof))
	}
	if proof[0] != level0Sibling {
		t.Errorf("proof[0] = %v, want caller-supplied %v", proof[0], level0Sibling)
	}
	if proof[1] != right {
		t.Errorf("proof[1] = %v, want cached sibling %v", proof[1], right)
	}

	// A never-written slot must be lazily materialized as the empty
	// subtree hash for its level, not returned as the raw zero node.
	empty := merkle.NewEmptyCache(hasher).Empty(1)
	proofRight, err := c.FillProof(2, []merkle.Node{{0x02}})
	if err != nil {
		t.Fatalf("FillProof(2) error: %v", err)
	}
	if proofRight[1] != empty {
		t.Errorf("proofRight[1] = %v, want materialized empty level-1 hash %v", proofRight[1], empty)
	}
}

func TestUpdateAfterMutationWritesCachedSlot(t *testing.T) {
	c, err := New(make([]byte, 64), 2, merkle.Keccak256Hasher{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	newLevel1 := merkle.Node{0xCC}
	cl := merkle.ChangeLog{
		Index: 0,
		Path:  []merkle.Node{{0xaa}, newLevel1},
	}
	if err := c.UpdateAfterMutation(cl); err != nil {
		t.Fatalf("UpdateAfterMutation() error: %v", err)
	}
	if c.nodes[0] != newLevel1 {
		t.Errorf("nodes[0] = %v, want %v", c.nodes[0], newLevel1)
	}
}

func TestBytesRoundTrips(t *testing.T) {
	buf := make([]byte, 64)
	buf[0] = 0x42
	buf[63] = 0x99
	c, err := New(buf, 2, merkle.Keccak256Hasher{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	out := c.Bytes()
	if len(out) != len(buf) {
		t.Fatalf("Bytes() length = %d, want %d", len(out), len(buf))
	}
	if out[0] != 0x42 || out[63] != 0x99 {
		t.Errorf("Bytes() = %v, want round-tripped input", out)
	}
}
