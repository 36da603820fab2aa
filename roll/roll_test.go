package roll

import (
	"errors"
	"testing"

	"github.com/jarry-xiao/gummyroll/merkle"
)

func newTestRoll(t *testing.T, depth int, bufferSize uint64) *Roll {
	t.Helper()
	r, err := New(depth, bufferSize, merkle.Keccak256Hasher{}, nil)
	if err != nil {
		t.Fatalf("New(%d, %d) error: %v", depth, bufferSize, err)
	}
	if _, err := r.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	return r
}

func TestNewRejectsBadDimensions(t *testing.T) {
	cases := []struct {
		depth      int
		bufferSize uint64
	}{
		{depth: 2, bufferSize: 8},   // depth below minimum
		{depth: 3, bufferSize: 0},   // zero buffer
		{depth: 3, bufferSize: 3},   // not a power of two
		{depth: 31, bufferSize: 8},  // depth above MaxCachedEmptyLevel
	}
	for _, c := range cases {
		if _, err := New(c.depth, c.bufferSize, merkle.Keccak256Hasher{}, nil); !errors.Is(err, merkle.ErrBadDimensions) {
			t.Errorf("New(%d, %d) error = %v, want ErrBadDimensions", c.depth, c.bufferSize, err)
		}
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	r := newTestRoll(t, 4, 8)
	if _, err := r.Initialize(); !errors.Is(err, merkle.ErrTreeAlreadyInitialized) {
		t.Errorf("second Initialize() error = %v, want ErrTreeAlreadyInitialized", err)
	}
}

func TestAppendRejectsEmptyLeaf(t *testing.T) {
	r := newTestRoll(t, 4, 8)
	if _, err := r.Append(merkle.Node{}); !errors.Is(err, merkle.ErrCannotAppendEmpty) {
		t.Errorf("Append(empty) error = %v, want ErrCannotAppendEmpty", err)
	}
}

func TestAppendFillsTreeThenRejects(t *testing.T) {
	r := newTestRoll(t, 3, 8) // capacity 8
	for i := 0; i < 8; i++ {
		leaf := merkle.Node{byte(i + 1)}
		if _, err := r.Append(leaf); err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}
	if _, err := r.Append(merkle.Node{0xff}); !errors.Is(err, merkle.ErrTreeFull) {
		t.Errorf("Append beyond capacity error = %v, want ErrTreeFull", err)
	}
}

func TestAppendThenProveLeafAgainstCurrentRoot(t *testing.T) {
	r := newTestRoll(t, 3, 8)
	leaf0 := merkle.Node{1}
	leaf1 := merkle.Node{2}

	if _, err := r.Append(leaf0); err != nil {
		t.Fatalf("Append(leaf0) error: %v", err)
	}
	root, err := r.Append(leaf1)
	if err != nil {
		t.Fatalf("Append(leaf1) error: %v", err)
	}

	// A correct, up-to-date proof for leaf1 at index 1 must recompute to root.
	proof := r.RightmostProof().Proof
	if got := merkle.Recompute(r.Hasher(), leaf1, proof, 1); got != root {
		t.Fatalf("Recompute(leaf1) = %v, want %v", got, root)
	}
	if err := r.ProveLeaf(root, leaf1, proof, 1); err != nil {
		t.Errorf("ProveLeaf(current) error: %v", err)
	}
}

func TestSetLeafFastForwardsThroughInterveningAppend(t *testing.T) {
	r := newTestRoll(t, 3, 8)
	leaf0 := merkle.Node{1}
	root0, err := r.Append(leaf0)
	if err != nil {
		t.Fatalf("Append(leaf0) error: %v", err)
	}
	proof0 := r.RightmostProof().Proof

	// Another mutation lands before the caller's SetLeaf is applied.
	leaf1 := merkle.Node{2}
	if _, err := r.Append(leaf1); err != nil {
		t.Fatalf("Append(leaf1) error: %v", err)
	}

	newLeaf0 := merkle.Node{0xaa}
	root, err := r.SetLeaf(root0, leaf0, newLeaf0, proof0, 0)
	if err != nil {
		t.Fatalf("SetLeaf() error: %v", err)
	}

	updatedProof := r.RightmostProof()
	// leaf1 is still at index 1 with its original content.
	if got := merkle.Recompute(r.Hasher(), leaf1, updatedProof.Proof, 1); got != root {
		t.Errorf("Recompute(leaf1) after SetLeaf = %v, want %v", got, root)
	}
}

func TestSetLeafDetectsModifiedLeaf(t *testing.T) {
	r := newTestRoll(t, 3, 8)
	leaf0 := merkle.Node{1}
	root0, err := r.Append(leaf0)
	if err != nil {
		t.Fatalf("Append(leaf0) error: %v", err)
	}
	proof0 := r.RightmostProof().Proof

	// Someone else overwrites leaf0 first.
	if _, err := r.SetLeaf(root0, leaf0, merkle.Node{0x11}, proof0, 0); err != nil {
		t.Fatalf("first SetLeaf() error: %v", err)
	}

	// The caller's stale proof still claims leaf0's old content.
	if _, err := r.SetLeaf(root0, leaf0, merkle.Node{0x22}, proof0, 0); !errors.Is(err, merkle.ErrLeafContentsModified) {
		t.Errorf("SetLeaf with stale leaf content error = %v, want ErrLeafContentsModified", err)
	}
}

func TestSetLeafRootNotFoundAfterBufferOverflow(t *testing.T) {
	r := newTestRoll(t, 4, 2) // tiny buffer, easy to overflow
	leaf0 := merkle.Node{1}
	root0, err := r.Append(leaf0)
	if err != nil {
		t.Fatalf("Append(leaf0) error: %v", err)
	}
	proof0 := r.RightmostProof().Proof

	// Overflow the 2-entry changelog buffer with unrelated appends.
	for i := 0; i < 3; i++ {
		if _, err := r.Append(merkle.Node{byte(10 + i)}); err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}

	if _, err := r.SetLeaf(root0, leaf0, merkle.Node{0xbb}, proof0, 0); !errors.Is(err, merkle.ErrRootNotFound) {
		t.Errorf("SetLeaf after overflow error = %v, want ErrRootNotFound", err)
	}
}

func TestProveLeafSucceedsViaFullBufferReplayAfterOverflow(t *testing.T) {
	r := newTestRoll(t, 4, 2)
	if _, err := r.Append(merkle.Node{9}); err != nil {
		t.Fatalf("Append(first) error: %v", err)
	}
	leaf1 := merkle.Node{1}
	root1, err := r.Append(leaf1)
	if err != nil {
		t.Fatalf("Append(leaf1) error: %v", err)
	}
	proof1 := r.RightmostProof().Proof

	for i := 0; i < 3; i++ {
		if _, err := r.Append(merkle.Node{byte(10 + i)}); err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}

	// prove_leaf tolerates the overflow via full-buffer replay, unlike set_leaf.
	// The one entry that fell out of the buffer (the append at index 2) set
	// leaf1's level-1 sibling, which the retained index-3 entry sets again,
	// so replaying the retained entries alone repairs proof1.
	if err := r.ProveLeaf(root1, leaf1, proof1, 1); err != nil {
		t.Errorf("ProveLeaf after overflow error: %v, want nil", err)
	}
}

func TestFillEmptyOrAppendFallsBackToAppend(t *testing.T) {
	r := newTestRoll(t, 3, 8)
	root := r.CurrentRoot()
	proof := r.RightmostProof().Proof

	leafA := merkle.Node{1}
	if _, err := r.FillEmptyOrAppend(root, leafA, proof, 0); err != nil {
		t.Fatalf("first FillEmptyOrAppend error: %v", err)
	}

	// Index 0 is now occupied. A second caller who read the tree before
	// the first write (still holding the original empty-tree root and an
	// all-empty proof) must fall through to Append rather than erroring
	// out, since fast-forwarding its stale proof discovers index 0 was
	// already filled.
	leafB := merkle.Node{2}
	rightmostBefore := r.RightmostIndex()
	if _, err := r.FillEmptyOrAppend(root, leafB, proof, 0); err != nil {
		t.Fatalf("second FillEmptyOrAppend error: %v", err)
	}
	if r.RightmostIndex() != rightmostBefore+1 {
		t.Errorf("RightmostIndex = %d, want %d (fallback append)", r.RightmostIndex(), rightmostBefore+1)
	}
}

func TestLeafIndexOutOfBounds(t *testing.T) {
	r := newTestRoll(t, 3, 8)
	root := r.CurrentRoot()
	proof := r.RightmostProof().Proof
	if _, err := r.SetLeaf(root, merkle.Node{}, merkle.Node{1}, proof, 5); !errors.Is(err, merkle.ErrLeafIndexOutOfBounds) {
		t.Errorf("SetLeaf beyond rightmost index error = %v, want ErrLeafIndexOutOfBounds", err)
	}
}
