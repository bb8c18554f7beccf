package sink

import (
	"fmt"

	"github.com/edgeaudio/pdm-audio-pipeline/internal/audio"
)

// Filtered runs every frame through a stateful audio filter before
// handing it to the inner sink. The pipeline's playback buffer must
// stay untouched, so the frame is copied into a reused scratch buffer
// and the filter works on the copy.
type Filtered struct {
	inner   Sink
	filter  *audio.Filter
	scratch []int16
}

// NewFiltered wraps inner with filter.
func NewFiltered(inner Sink, filter *audio.Filter) *Filtered {
	return &Filtered{inner: inner, filter: filter}
}

// Write filters a copy of samples and forwards it.
func (s *Filtered) Write(samples []int16) error {
	if cap(s.scratch) < len(samples) {
		s.scratch = make([]int16, len(samples))
	}
	s.scratch = s.scratch[:len(samples)]
	copy(s.scratch, samples)

	if err := s.filter.Process(s.scratch); err != nil {
		return fmt.Errorf("sink filter failed: %w", err)
	}
	return s.inner.Write(s.scratch)
}

// Close closes the inner sink.
func (s *Filtered) Close() error {
	return s.inner.Close()
}
