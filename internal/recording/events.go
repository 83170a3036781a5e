// Package recording owns RecordingController, the object that sequences
// one recording session end to end: hotkey edge -> focus capture -> mute
// -> streaming ASR -> pipeline -> paste. Ported from spec.md section 4.5,
// which has no single teacher analogue (the teacher daemon is a
// single-provider, single-hotkey loop) — the begin/end step ordering and
// the isProcessingStop reentrancy gate are new, built in the teacher's
// concurrency idiom (mutex-guarded state, atomic gates, defer-based
// cleanup).
package recording

import (
	"time"

	"github.com/quietkey/pushtotalk/internal/pipeline"
)

// EventKind names one of the observable lifecycle events a recording
// session can emit, per spec.md section 6.
type EventKind string

const (
	EventRecordingStarted       EventKind = "recording_started"
	EventRecordingLocked        EventKind = "recording_locked"
	EventRecordingStopped       EventKind = "recording_stopped"
	EventTranscribing           EventKind = "transcribing"
	EventTranscriptionComplete  EventKind = "transcription_complete"
	EventTranscriptionCancelled EventKind = "transcription_cancelled"
	EventError                  EventKind = "error"
)

// Event is one emitted lifecycle notification. Only the fields relevant to
// Kind are populated.
type Event struct {
	Kind     EventKind
	Result   pipeline.Result
	Message  string
	Duration time.Duration // wall-clock recording length, set on TranscriptionComplete
}

// Sink receives emitted events. The daemon's own logger/metrics/tray glue
// implements this; tests can use a slice-collecting fake.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }
