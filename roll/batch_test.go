package roll

import (
	"context"
	"testing"

	"github.com/jarry-xiao/gummyroll/merkle"
	"github.com/jarry-xiao/gummyroll/metrics"
)

func TestProveLeavesVerifiesEachRequestIndependently(t *testing.T) {
	r, err := New(4, 8, merkle.Keccak256Hasher{}, metrics.Inert{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := r.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	leaves := make([]merkle.Node, 4)
	proofs := make([][]merkle.Node, len(leaves))
	rootsAfter := make([]merkle.Node, len(leaves))
	for i := range leaves {
		leaves[i] = merkle.Node{byte(i + 1)}
		root, err := r.Append(leaves[i])
		if err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
		rootsAfter[i] = root
		proofs[i] = append([]merkle.Node(nil), r.RightmostProof().Proof...)
	}

	// Each request's root is the one observed right after that leaf's own
	// append; ProveLeaf must fast-forward the stale proof through every
	// later append to validate against the final root above.
	reqs := make([]ProveRequest, len(leaves)+1)
	for i := range leaves {
		reqs[i] = ProveRequest{CurrentRoot: rootsAfter[i], Leaf: leaves[i], Proof: proofs[i], Index: uint64(i)}
	}
	reqs[len(leaves)] = ProveRequest{CurrentRoot: rootsAfter[0], Leaf: merkle.Node{0xff}, Proof: proofs[0], Index: 0}

	errs := r.ProveLeaves(context.Background(), reqs)
	if len(errs) != len(reqs) {
		t.Fatalf("len(errs) = %d, want %d", len(errs), len(reqs))
	}
	for i := range leaves {
		if errs[i] != nil {
			t.Errorf("errs[%d] = %v, want nil", i, errs[i])
		}
	}
	if errs[len(leaves)] != merkle.ErrInvalidProof {
		t.Errorf("errs[last] = %v, want ErrInvalidProof", errs[len(leaves)])
	}
}
