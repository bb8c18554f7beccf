package device

import (
	"fmt"
	"sync"
)

// Synthetic is a deterministic in-memory Device for tests and offline
// simulation. Capture returns scripted frames in order (a frame shorter
// than the buffer produces a short read); Play records every submitted
// frame. Neither call blocks, so a driver loop over a Synthetic device
// runs as fast as the scheduler allows.
type Synthetic struct {
	mu          sync.Mutex
	frames      [][]int16
	pos         int
	played      [][]int16
	playAccept  int   // samples accepted per Play; 0 means all
	captureErr  error // returned once on the next Capture
	playErr     error // returned once on the next Play
	closed      bool
	captureCall int
	playCall    int
}

// NewSynthetic creates a synthetic device that serves the given capture
// frames in order. After the script is exhausted Capture reports a zero
// read, which the driver treats as a skipped iteration.
func NewSynthetic(frames [][]int16) *Synthetic {
	return &Synthetic{frames: frames}
}

// FailNextCapture makes the next Capture call return err.
func (s *Synthetic) FailNextCapture(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captureErr = err
}

// FailNextPlay makes the next Play call return err.
func (s *Synthetic) FailNextPlay(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playErr = err
}

// SetPlayAccept caps the sample count Play reports as accepted,
// simulating a short accept from the hardware.
func (s *Synthetic) SetPlayAccept(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playAccept = n
}

// Capture copies the next scripted frame into buf.
func (s *Synthetic) Capture(buf []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.captureCall++

	if s.closed {
		return 0, fmt.Errorf("device is closed")
	}

	if s.captureErr != nil {
		err := s.captureErr
		s.captureErr = nil
		return 0, err
	}

	if s.pos >= len(s.frames) {
		return 0, nil
	}

	frame := s.frames[s.pos]
	s.pos++

	n := copy(buf, frame)
	if len(frame) < len(buf) {
		// Scripted short read.
		return len(frame), nil
	}
	return n, nil
}

// Play records a copy of the submitted frame.
func (s *Synthetic) Play(buf []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playCall++

	if s.closed {
		return 0, fmt.Errorf("device is closed")
	}

	if s.playErr != nil {
		err := s.playErr
		s.playErr = nil
		return 0, err
	}

	frame := make([]int16, len(buf))
	copy(frame, buf)
	s.played = append(s.played, frame)

	if s.playAccept > 0 && s.playAccept < len(buf) {
		return s.playAccept, nil
	}
	return len(buf), nil
}

// Close marks the device closed; further calls fail.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Played returns the frames submitted for playback so far.
func (s *Synthetic) Played() [][]int16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]int16, len(s.played))
	copy(out, s.played)
	return out
}

// CaptureCalls returns how many times Capture was invoked.
func (s *Synthetic) CaptureCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureCall
}

// PlayCalls returns how many times Play was invoked.
func (s *Synthetic) PlayCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playCall
}
