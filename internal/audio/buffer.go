package audio

import (
	"fmt"
)

// BufferSource is an in-memory AudioSource, used by tests and by
// loopback/file-based runs that don't need a real audio device.
type BufferSource struct {
	samples []float32
	pos     int
}

// NewBufferSource wraps samples for sequential ReadSamples calls.
func NewBufferSource(samples []float32) *BufferSource {
	return &BufferSource{samples: samples}
}

// ReadSamples returns the next n samples, or an error if fewer than n
// remain.
func (b *BufferSource) ReadSamples(n int) ([]float32, error) {
	if b.pos+n > len(b.samples) {
		return nil, fmt.Errorf("audio: buffer exhausted: want %d, have %d", n, len(b.samples)-b.pos)
	}
	out := b.samples[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

// Close is a no-op for an in-memory source.
func (b *BufferSource) Close() error { return nil }

// RepeatingSource loops a fixed sample pattern indefinitely, for tests
// and "continuous listen" demos that need a source that never runs dry
// while they search for a preamble.
type RepeatingSource struct {
	pattern []float32
	pos     int
}

// NewRepeatingSource wraps pattern for indefinite, wraparound ReadSamples
// calls. pattern must be non-empty.
func NewRepeatingSource(pattern []float32) *RepeatingSource {
	return &RepeatingSource{pattern: pattern}
}

// ReadSamples returns the next n samples, wrapping around the pattern as
// needed.
func (r *RepeatingSource) ReadSamples(n int) ([]float32, error) {
	if len(r.pattern) == 0 {
		return nil, fmt.Errorf("audio: repeating source has an empty pattern")
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = r.pattern[r.pos]
		r.pos = (r.pos + 1) % len(r.pattern)
	}
	return out, nil
}

// Close is a no-op for an in-memory source.
func (r *RepeatingSource) Close() error { return nil }

// BufferSink is an in-memory AudioSink that accumulates every write.
type BufferSink struct {
	samples []float32
}

// NewBufferSink returns an empty accumulating sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// WriteSamples appends samples to the accumulated buffer.
func (b *BufferSink) WriteSamples(samples []float32) error {
	b.samples = append(b.samples, samples...)
	return nil
}

// Close is a no-op for an in-memory sink.
func (b *BufferSink) Close() error { return nil }

// Samples returns everything written so far.
func (b *BufferSink) Samples() []float32 {
	return b.samples
}
