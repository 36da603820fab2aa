package events

import "github.com/golang/glog"

// GlogSink logs every ChangeEvent at glog.Infof, in the same terse
// "sequenced %v" style trillian's log sequencer uses for successfully
// integrated batches.
type GlogSink struct{}

// Emit implements Sink.
func (GlogSink) Emit(ev ChangeEvent) {
	glog.Infof("gummyroll: seq=%d leaf_index=%d root=%s", ev.SequenceNumber, ev.ChangeLog.Index, ev.ChangeLog.Root)
}
