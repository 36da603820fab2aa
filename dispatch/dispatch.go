package dispatch

import (
	"github.com/golang/glog"

	"github.com/jarry-xiao/gummyroll/events"
	"github.com/jarry-xiao/gummyroll/merkle"
	"github.com/jarry-xiao/gummyroll/merkle/canopy"
	"github.com/jarry-xiao/gummyroll/metrics"
	"github.com/jarry-xiao/gummyroll/roll"
)

// Session binds a Header to a live Roll and Canopy decoded from a
// caller's byte buffers, and the roll/canopy byte slices those buffers
// live in. Flush re-encodes the Roll and Canopy state back into those
// same slices; every method below that mutates the Roll calls it before
// returning successfully (TransferAuthority writes only the header bytes).
type Session struct {
	Header Header
	Roll   *roll.Roll
	Canopy *canopy.Canopy

	rollBytes   []byte
	canopyBytes []byte

	Sink    events.Sink
	Metrics metrics.Factory
}

// Open validates headerBytes against the support matrix and decodes the
// roll and canopy state out of rollBytes/canopyBytes. rollBytes must be
// exactly RollBodySize(depth, bufferSize) bytes long.
func Open(headerBytes, rollBytes, canopyBytes []byte, hasher merkle.Hasher, sink events.Sink, mf metrics.Factory) (*Session, error) {
	h, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	depth := int(h.MaxDepth)
	bufferSize := uint64(h.MaxBufferSize)
	if err := Validate(depth, bufferSize); err != nil {
		return nil, err
	}
	if len(rollBytes) != RollBodySize(depth, bufferSize) {
		return nil, ErrBufferTooSmall
	}
	if sink == nil {
		sink = events.Discard{}
	}
	if mf == nil {
		mf = metrics.Inert{}
	}

	r, err := roll.New(depth, bufferSize, hasher, mf)
	if err != nil {
		return nil, err
	}
	r.Restore(decodeRoll(rollBytes, depth, bufferSize))

	c, err := canopy.New(canopyBytes, depth, hasher)
	if err != nil {
		return nil, err
	}

	return &Session{
		Header:      h,
		Roll:        r,
		Canopy:      c,
		rollBytes:   rollBytes,
		canopyBytes: canopyBytes,
		Sink:        sink,
		Metrics:     mf,
	}, nil
}

// Flush re-encodes the session's Roll and Canopy state back into the
// byte buffers Open was given.
func (s *Session) Flush() {
	encodeRoll(s.rollBytes, s.Roll.Depth(), s.Roll.BufferSize(), s.Roll.State())
	copy(s.canopyBytes, s.Canopy.Bytes())
}

// emit writes the changelog entry as an event, then folds it into the
// canopy — in that order, so a canopy write failure never causes an
// event to go unreported.
func (s *Session) emit(cl merkle.ChangeLog) error {
	s.Sink.Emit(events.ChangeEvent{SequenceNumber: s.Roll.SequenceNumber(), ChangeLog: cl})
	return s.Canopy.UpdateAfterMutation(cl)
}

// InitializeEmpty resets a freshly zeroed roll to the canonical empty
// tree and flushes the result.
func (s *Session) InitializeEmpty() (merkle.Node, error) {
	root, err := s.Roll.Initialize()
	if err != nil {
		return merkle.Node{}, err
	}
	if err := s.emit(s.Roll.CurrentChangeLog()); err != nil {
		return merkle.Node{}, err
	}
	s.Flush()
	return root, nil
}

// InitializeWithRoot seeds a freshly zeroed roll with a trusted root and
// flushes the result.
func (s *Session) InitializeWithRoot(root, rightmostLeaf merkle.Node, proof []merkle.Node, index uint64) (merkle.Node, error) {
	got, err := s.Roll.InitializeWithRoot(root, rightmostLeaf, proof, index)
	if err != nil {
		return merkle.Node{}, err
	}
	if err := s.emit(s.Roll.CurrentChangeLog()); err != nil {
		return merkle.Node{}, err
	}
	s.Flush()
	return got, nil
}

// Append appends leaf, extends the proof with canopy lookups internally
// are not needed (append never takes a caller proof), and flushes.
func (s *Session) Append(leaf merkle.Node) (merkle.Node, error) {
	root, err := s.Roll.Append(leaf)
	if err != nil {
		return merkle.Node{}, err
	}
	if err := s.emit(s.Roll.CurrentChangeLog()); err != nil {
		return merkle.Node{}, err
	}
	s.Flush()
	return root, nil
}

// ReplaceLeaf fills in proof from the canopy before delegating to
// Roll.SetLeaf, and flushes on success.
func (s *Session) ReplaceLeaf(currentRoot, previousLeaf, newLeaf merkle.Node, proof []merkle.Node, index uint64) (merkle.Node, error) {
	full, err := s.Canopy.FillProof(index, proof)
	if err != nil {
		return merkle.Node{}, err
	}
	root, err := s.Roll.SetLeaf(currentRoot, previousLeaf, newLeaf, full, index)
	if err != nil {
		return merkle.Node{}, err
	}
	if err := s.emit(s.Roll.CurrentChangeLog()); err != nil {
		return merkle.Node{}, err
	}
	s.Flush()
	return root, nil
}

// InsertOrAppend fills in proof from the canopy and delegates to
// Roll.FillEmptyOrAppend, flushing on success.
func (s *Session) InsertOrAppend(currentRoot, newLeaf merkle.Node, proof []merkle.Node, index uint64) (merkle.Node, error) {
	full, err := s.Canopy.FillProof(index, proof)
	if err != nil {
		return merkle.Node{}, err
	}
	root, err := s.Roll.FillEmptyOrAppend(currentRoot, newLeaf, full, index)
	if err != nil {
		return merkle.Node{}, err
	}
	if err := s.emit(s.Roll.CurrentChangeLog()); err != nil {
		return merkle.Node{}, err
	}
	s.Flush()
	return root, nil
}

// VerifyLeaf fills in proof from the canopy and delegates to the
// non-mutating Roll.ProveLeaf; no Flush is needed since nothing changed.
func (s *Session) VerifyLeaf(currentRoot, leaf merkle.Node, proof []merkle.Node, index uint64) error {
	full, err := s.Canopy.FillProof(index, proof)
	if err != nil {
		return err
	}
	return s.Roll.ProveLeaf(currentRoot, leaf, full, index)
}

// TransferAuthority overwrites the header's authority fields and flushes
// the header bytes.
func (s *Session) TransferAuthority(headerBytes []byte, newAuthority, newAppendAuthority [32]byte) error {
	s.Header.Authority = newAuthority
	s.Header.AppendAuthority = newAppendAuthority
	glog.V(1).Infof("gummyroll: authority transferred to %x", newAuthority)
	return s.Header.Encode(headerBytes)
}
