package dispatch

import "github.com/jarry-xiao/gummyroll/merkle"

// supportMatrix enumerates every (depth, bufferSize) pair the dispatcher
// will instantiate a Roll for, matching the original program's fixed set
// of monomorphized instantiations.
var supportMatrix = map[int]map[uint64]bool{
	3:  {8: true},
	5:  {8: true},
	14: {64: true, 256: true, 1024: true, 2048: true},
	20: {64: true, 256: true, 1024: true, 2048: true},
	24: {64: true, 256: true, 512: true, 1024: true, 2048: true},
	26: {512: true, 1024: true, 2048: true},
	30: {512: true, 1024: true, 2048: true},
}

// Validate returns ErrBadDimensions unless (depth, bufferSize) is one of
// the dispatcher's supported pairs.
func Validate(depth int, bufferSize uint64) error {
	sizes, ok := supportMatrix[depth]
	if !ok || !sizes[bufferSize] {
		return merkle.ErrBadDimensions
	}
	return nil
}

// PreAppendPartitionCount is N, the maximum number of partitions a
// PreAppend accumulator for a source roll of this depth may hold. It is
// uniformly depth+1 (the original program's N=depth special case at
// depth 24 and 26 is a known bug — see DESIGN.md).
func PreAppendPartitionCount(depth int) int {
	return depth + 1
}
