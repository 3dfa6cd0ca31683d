package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// DefaultSampleRate is the wire sample rate the waveform format is defined
// at (48 kHz mono, 32-bit float PCM).
const DefaultSampleRate = 48000

// AudioSource is the blocking, pull-based collaborator the demodulator
// reads microphone (or file/pipe) samples from.
type AudioSource interface {
	ReadSamples(n int) ([]float32, error)
	Close() error
}

// AudioSink is the blocking, push-based collaborator the modulator writes
// speaker (or file/pipe) samples to.
type AudioSink interface {
	WriteSamples(samples []float32) error
	Close() error
}

// PortAudioSource is an AudioSource backed by the default input device.
type PortAudioSource struct {
	stream     *portaudio.Stream
	buf        []float32
	chunkSize  int
	mu         sync.Mutex
}

// NewPortAudioSource opens the default input device at sampleRate, reading
// chunkSize-frame buffers at a time.
func NewPortAudioSource(sampleRate float64, chunkSize int) (*PortAudioSource, error) {
	buf := make([]float32, chunkSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, chunkSize, buf)
	if err != nil {
		return nil, fmt.Errorf("audio: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("audio: start input stream: %w", err)
	}
	return &PortAudioSource{stream: stream, buf: buf, chunkSize: chunkSize}, nil
}

// ReadSamples blocks until n samples have been captured, reading the
// underlying stream in chunkSize-frame bursts.
func (s *PortAudioSource) ReadSamples(n int) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]float32, 0, n)
	for len(out) < n {
		if err := s.stream.Read(); err != nil {
			return nil, fmt.Errorf("audio: read: %w", err)
		}
		out = append(out, s.buf...)
	}
	return out[:n], nil
}

// Close stops and releases the input stream.
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("audio: stop input stream: %w", err)
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

// PortAudioSink is an AudioSink backed by the default output device.
type PortAudioSink struct {
	stream    *portaudio.Stream
	buf       []float32
	chunkSize int
	mu        sync.Mutex
}

// NewPortAudioSink opens the default output device at sampleRate, writing
// chunkSize-frame buffers at a time.
func NewPortAudioSink(sampleRate float64, chunkSize int) (*PortAudioSink, error) {
	buf := make([]float32, chunkSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, sampleRate, chunkSize, buf)
	if err != nil {
		return nil, fmt.Errorf("audio: open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("audio: start output stream: %w", err)
	}
	return &PortAudioSink{stream: stream, buf: buf, chunkSize: chunkSize}, nil
}

// WriteSamples blocks until every sample has been written, zero-padding
// the final partial chunk.
func (s *PortAudioSink) WriteSamples(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < len(samples); i += s.chunkSize {
		end := i + s.chunkSize
		if end > len(samples) {
			chunk := make([]float32, s.chunkSize)
			copy(chunk, samples[i:])
			copy(s.buf, chunk)
		} else {
			copy(s.buf, samples[i:end])
		}
		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("audio: write: %w", err)
		}
	}
	return nil
}

// Close stops and releases the output stream.
func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("audio: stop output stream: %w", err)
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

// Init initializes the PortAudio runtime; call once at process start.
func Init() error {
	return portaudio.Initialize()
}

// Terminate releases the PortAudio runtime; call once at process exit.
func Terminate() error {
	return portaudio.Terminate()
}
