// Package events defines the structured record emitted on every
// successful roll mutation, and the Sink interface that receives it —
// the module's only outward-facing side effect, left to the host to wire
// to a log, a message bus, or nothing at all.
package events

//go:generate mockgen -destination mock_sink.go -package events github.com/jarry-xiao/gummyroll/events Sink

import "github.com/jarry-xiao/gummyroll/merkle"

// ChangeEvent is emitted once per successful mutation (append, set_leaf,
// fill_empty_or_append, or one partition of a subtree-append). It carries
// exactly the changelog entry the mutation produced, plus the sequence
// number it was applied at.
type ChangeEvent struct {
	SequenceNumber uint64
	ChangeLog      merkle.ChangeLog
}

// Sink receives ChangeEvents. Implementations must not block the caller
// indefinitely — the dispatch package calls Emit synchronously on the
// mutation's own goroutine.
type Sink interface {
	Emit(ChangeEvent)
}

// Discard is a Sink that drops every event; it is the default when a
// caller does not wire one in.
type Discard struct{}

// Emit implements Sink.
func (Discard) Emit(ChangeEvent) {}
