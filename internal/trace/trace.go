// Package trace is the event-sink collaborator the codec reports progress
// through: preamble detected, channel estimated, symbol decoded, end tone
// missing. EventError, EventFrameComplete and EventCancelled are defined
// here but the codec does not emit them; its errors are returned to the
// caller only. The default implementation logs with the
// standard library the way the teacher's protocol.Session reports
// warnings over log.Printf.
package trace

import "log"

// EventKind names the events the codec reports.
type EventKind string

const (
	EventPreambleDetected  EventKind = "preamble_detected"
	EventChannelEstimated  EventKind = "channel_estimated"
	EventSymbolDecoded     EventKind = "symbol_decoded"
	EventError             EventKind = "error"
	EventFrameComplete     EventKind = "frame_complete"
	EventCancelled         EventKind = "cancelled"

	// EventEndToneMissing is a warning, not a failure: the end-of-frame
	// tone didn't show up within the post-frame search window, but the
	// frame itself already decoded successfully.
	EventEndToneMissing EventKind = "end_tone_missing"
)

// Event is a single sink notification. Fields beyond Kind are
// best-effort context (symbol index, byte offset, residual phase, the
// triggering error) and may be zero-valued when not applicable.
type Event struct {
	Kind   EventKind
	Symbol int
	Bytes  int
	Phase  float64
	Err    error
}

// Sink receives codec progress and error events.
type Sink interface {
	Trace(Event)
}

// LogSink logs every event with the standard library logger, matching the
// teacher's log.Printf idiom.
type LogSink struct {
	*log.Logger
}

// NewLogSink wraps logger (or the standard logger if nil) as a Sink.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{Logger: logger}
}

func (s *LogSink) Trace(e Event) {
	switch e.Kind {
	case EventError:
		s.Printf("soniclink: %s: %v", e.Kind, e.Err)
	case EventSymbolDecoded:
		s.Printf("soniclink: %s: symbol=%d bytes=%d phase=%.4f", e.Kind, e.Symbol, e.Bytes, e.Phase)
	default:
		s.Printf("soniclink: %s", e.Kind)
	}
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Trace(Event) {}
