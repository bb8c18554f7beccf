package sink

import (
	"fmt"
	"os"
	"sync"

	"github.com/edgeaudio/pdm-audio-pipeline/internal/audio"
)

// WAVRecorder accumulates PCM frames up to a fixed sample budget and
// writes a single WAV file on Close. Frames arriving after the budget
// is spent are dropped silently, so a recorder can stay attached to a
// long-running pipeline without growing without bound.
type WAVRecorder struct {
	mu         sync.Mutex
	path       string
	sampleRate int
	channels   int
	limit      int // total samples, all channels
	samples    []int16
	closed     bool
}

// NewWAVRecorder creates a recorder that keeps at most maxSeconds of
// interleaved audio.
func NewWAVRecorder(path string, sampleRate, channels int, maxSeconds float64) (*WAVRecorder, error) {
	if path == "" {
		return nil, fmt.Errorf("recording path cannot be empty")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("channels must be 1 or 2, got %d", channels)
	}
	if maxSeconds <= 0 {
		return nil, fmt.Errorf("recording length must be positive, got %f", maxSeconds)
	}

	limit := int(maxSeconds * float64(sampleRate) * float64(channels))
	return &WAVRecorder{
		path:       path,
		sampleRate: sampleRate,
		channels:   channels,
		limit:      limit,
		samples:    make([]int16, 0, limit),
	}, nil
}

// Write appends samples until the budget is reached.
func (r *WAVRecorder) Write(samples []int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder is closed")
	}

	remaining := r.limit - len(r.samples)
	if remaining <= 0 {
		return nil
	}
	if len(samples) > remaining {
		samples = samples[:remaining]
	}

	r.samples = append(r.samples, samples...)
	return nil
}

// Full reports whether the sample budget has been spent.
func (r *WAVRecorder) Full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples) >= r.limit
}

// Close encodes the accumulated audio and writes the WAV file.
func (r *WAVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if len(r.samples) == 0 {
		return fmt.Errorf("no audio recorded, not writing %s", r.path)
	}

	data, err := audio.EncodeWAV(r.samples, r.sampleRate, r.channels)
	if err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write recording %s: %w", r.path, err)
	}

	return nil
}
