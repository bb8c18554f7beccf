package sink

import (
	"fmt"
	"io"

	"github.com/edgeaudio/pdm-audio-pipeline/internal/protocol"
)

// Sink consumes PCM frames produced by the pipeline. Implementations
// must tolerate being called once per iteration on the audio path.
type Sink interface {
	Write(samples []int16) error
	Close() error
}

// WriterSink streams raw little-endian PCM to an io.Writer. The scratch
// buffer is reused across frames so steady-state writes do not allocate.
type WriterSink struct {
	w       io.Writer
	scratch []byte
}

// NewWriterSink wraps w in a raw PCM sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write encodes samples little-endian and writes them in one call.
func (s *WriterSink) Write(samples []int16) error {
	s.scratch = protocol.AppendFrame(s.scratch[:0], samples)
	if _, err := s.w.Write(s.scratch); err != nil {
		return fmt.Errorf("raw sink write failed: %w", err)
	}
	return nil
}

// Close closes the underlying writer when it is closeable.
func (s *WriterSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Discard is a Sink that drops every frame.
type Discard struct{}

func (Discard) Write([]int16) error { return nil }
func (Discard) Close() error        { return nil }

// Multi fans every frame out to all sinks. The first write error is
// returned but remaining sinks still receive the frame.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks into one. With zero or one sink it returns
// the trivial equivalent instead.
func NewMulti(sinks ...Sink) Sink {
	switch len(sinks) {
	case 0:
		return Discard{}
	case 1:
		return sinks[0]
	}
	return &Multi{sinks: sinks}
}

// Write delivers samples to every sink.
func (m *Multi) Write(samples []int16) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Write(samples); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every sink.
func (m *Multi) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
