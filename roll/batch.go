package roll

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jarry-xiao/gummyroll/merkle"
)

// ProveRequest is one leaf/proof pair to verify against currentRoot and
// index in a ProveLeaves batch.
type ProveRequest struct {
	CurrentRoot merkle.Node
	Leaf        merkle.Node
	Proof       []merkle.Node
	Index       uint64
}

// ProveLeaves verifies every request concurrently, each via ProveLeaf, and
// returns one error per request in the same order (nil where the proof
// verified). It lets a caller batch-verify many stale proofs — e.g. the
// indexed leaves of a large subtree before a PreAppend push — paying only
// one round of fast-forward walks in parallel instead of one call at a
// time. ctx cancellation stops launching new verifications but does not
// abort ones already running.
func (r *Roll) ProveLeaves(ctx context.Context, reqs []ProveRequest) []error {
	errs := make([]error, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			select {
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return nil
			default:
			}
			errs[i] = r.ProveLeaf(req.CurrentRoot, req.Leaf, req.Proof, req.Index)
			return nil
		})
	}
	g.Wait()
	return errs
}
