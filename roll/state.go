package roll

import "github.com/jarry-xiao/gummyroll/merkle"

// State is the complete mutable state of a Roll, used by the dispatch
// package to serialize a Roll to and from a caller-supplied byte buffer.
// It is not meant for callers to mutate directly outside that boundary.
type State struct {
	SequenceNumber uint64
	ActiveIndex    uint64
	FilledSize     uint64
	ChangeLogs     []merkle.ChangeLog
	RightmostProof merkle.Path
}

// State snapshots the roll's current mutable state.
func (r *Roll) State() State {
	logs := make([]merkle.ChangeLog, len(r.changeLogs))
	for i, cl := range r.changeLogs {
		logs[i] = cl.Clone()
	}
	return State{
		SequenceNumber: r.sequenceNumber,
		ActiveIndex:    r.activeIndex,
		FilledSize:     r.filledSize,
		ChangeLogs:     logs,
		RightmostProof: r.rightmostProof.Clone(),
	}
}

// Restore replaces the roll's mutable state with s, which must have been
// produced by State on a Roll of the same (depth, bufferSize).
func (r *Roll) Restore(s State) {
	r.sequenceNumber = s.SequenceNumber
	r.activeIndex = s.ActiveIndex
	r.filledSize = s.FilledSize
	for i, cl := range s.ChangeLogs {
		r.changeLogs[i] = cl.Clone()
	}
	r.rightmostProof = s.RightmostProof.Clone()
}
