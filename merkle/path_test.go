package merkle

import "testing"

func TestChangeLogFastForwardSameIndexReplacesLeaf(t *testing.T) {
	cl := &ChangeLog{
		Index: 5,
		Path:  []Node{{0xaa}, {0xbb}, {0xcc}},
	}
	leaf := Node{0x01}
	proof := []Node{{0x10}, {0x20}, {0x30}}

	cl.FastForward(5, proof, &leaf)

	if leaf != cl.Path[0] {
		t.Errorf("leaf = %v, want %v", leaf, cl.Path[0])
	}
	// Proof untouched: this mutation touched the leaf itself, not a sibling.
	want := []Node{{0x10}, {0x20}, {0x30}}
	for i := range want {
		if proof[i] != want[i] {
			t.Errorf("proof[%d] = %v, want %v", i, proof[i], want[i])
		}
	}
}

func TestChangeLogFastForwardSiblingReplacesOneLevel(t *testing.T) {
	// leafIndex=0b010, cl.Index=0b011: diverge at bit 0, so Lc=0... wait,
	// these share bits above 0 and differ at bit 0, meaning they are
	// siblings at level 0.
	cl := &ChangeLog{
		Index: 0b011,
		Path:  []Node{{1}, {2}, {3}},
	}
	leaf := Node{9}
	orig := leaf
	proof := []Node{{0x10}, {0x20}, {0x30}}

	cl.FastForward(0b010, proof, &leaf)

	if leaf != orig {
		t.Errorf("unrelated leaf index must not be touched, got %v", leaf)
	}
	if proof[0] != cl.Path[0] {
		t.Errorf("proof[0] = %v, want %v (the diverging level)", proof[0], cl.Path[0])
	}
	if proof[1] != (Node{0x20}) || proof[2] != (Node{0x30}) {
		t.Errorf("levels above the divergence must be untouched: proof=%v", proof)
	}
}

func TestChangeLogFastForwardUnrelatedIndexNoOp(t *testing.T) {
	cl := &ChangeLog{
		Index: 0b1000,
		Path:  []Node{{1}, {2}, {3}, {4}},
	}
	leaf := Node{9}
	proof := []Node{{0x10}, {0x20}, {0x30}}

	cl.FastForward(0b0001, proof, &leaf)

	if leaf != (Node{9}) {
		t.Errorf("leaf changed unexpectedly: %v", leaf)
	}
	want := []Node{{0x10}, {0x20}, {0x30}}
	for i := range want {
		if proof[i] != want[i] {
			t.Errorf("proof[%d] changed unexpectedly to %v", i, proof[i])
		}
	}
}

func TestPathCloneIsIndependent(t *testing.T) {
	p := Path{Proof: []Node{{1}, {2}}, Index: 3, Leaf: Node{9}}
	clone := p.Clone()
	clone.Proof[0] = Node{0xff}
	if p.Proof[0] == clone.Proof[0] {
		t.Fatalf("Clone shares backing array with original")
	}
}
