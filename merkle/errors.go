package merkle

import "errors"

// Sentinel errors returned by roll, canopy, and preappend operations,
// checked with errors.Is at call sites (the same convention trillian uses
// for storage.ErrTreeNeedsInit).
var (
	// ErrBadDimensions is returned when a (depth, bufferSize) pair is not
	// one of the dispatcher's supported combinations.
	ErrBadDimensions = errors.New("gummyroll: unsupported (depth, buffer size) pair")

	// ErrTreeFull is returned when an append would exceed the tree's
	// leaf capacity (2^depth leaves).
	ErrTreeFull = errors.New("gummyroll: tree is at capacity")

	// ErrCannotAppendEmpty is returned when the caller attempts to append
	// the all-zero leaf, which is reserved to mean "absent".
	ErrCannotAppendEmpty = errors.New("gummyroll: cannot append the empty leaf")

	// ErrLeafIndexOutOfBounds is returned when a leaf index is beyond the
	// tree's current rightmost index.
	ErrLeafIndexOutOfBounds = errors.New("gummyroll: leaf index beyond rightmost index")

	// ErrRootNotFound is returned when a caller-supplied root is not
	// present in the changelog ring buffer and full-buffer replay is not
	// permitted for the operation.
	ErrRootNotFound = errors.New("gummyroll: root not found in changelog buffer")

	// ErrLeafContentsModified is returned when fast-forwarding a proof
	// discovers that the leaf it targets was changed by an intervening
	// mutation, so the caller's proof is stale in a way that cannot be
	// safely repaired.
	ErrLeafContentsModified = errors.New("gummyroll: leaf contents were modified by a later mutation")

	// ErrInvalidProof is returned when a proof, after any fast-forward
	// repair, fails to recompute to the tree's current root.
	ErrInvalidProof = errors.New("gummyroll: proof failed to recompute to the current root")

	// ErrTreeAlreadyInitialized is returned by initialize/initialize_with_root
	// when the roll's state is not the freshly zeroed state they require.
	ErrTreeAlreadyInitialized = errors.New("gummyroll: tree already initialized")

	// ErrSubtreeInvalidSize is returned when a subtree-append partition's
	// proof length does not match the shape required at the current
	// rightmost index, or when a pre-append partition is pushed out of
	// strictly increasing height order.
	ErrSubtreeInvalidSize = errors.New("gummyroll: subtree partition size is invalid")

	// ErrSequenceChanged is returned when a pre-append accumulator is used
	// against a source roll whose sequence number no longer matches the
	// one recorded when the accumulator was reset.
	ErrSequenceChanged = errors.New("gummyroll: source tree sequence changed since reset")

	// ErrCanopyLengthMismatch is returned when a canopy byte buffer's
	// length is not M*32 for an M satisfying M+2 a power of two no
	// larger than 2^(depth+1).
	ErrCanopyLengthMismatch = errors.New("gummyroll: canopy buffer length mismatch")
)
