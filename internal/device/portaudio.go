//go:build cgo

package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice implements Device over a blocking PortAudio duplex
// stream. The stream owns two fixed-size buffers allocated once at open;
// Capture and Play copy through them so the DMA-style double buffering
// stays inside the backend.
type PortAudioDevice struct {
	config Config
	stream *portaudio.Stream
	in     []int16 // mono, FrameLength samples
	out    []int16 // stereo interleaved, 2*FrameLength samples
	mu     sync.Mutex
	closed bool
}

// Open initializes PortAudio and opens a duplex stream on the default
// input and output devices. Failure here is the pipeline's only fatal
// error: the caller is expected to halt, not retry.
func Open(cfg Config) (*PortAudioDevice, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device config: %w", err)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	d := &PortAudioDevice{
		config: cfg,
		in:     make([]int16, cfg.FrameLength),
		out:    make([]int16, cfg.PlaybackChannels*cfg.FrameLength),
	}

	stream, err := portaudio.OpenDefaultStream(
		cfg.CaptureChannels,
		cfg.PlaybackChannels,
		float64(cfg.SampleRate),
		cfg.FrameLength,
		d.in,
		d.out,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open duplex stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start duplex stream: %w", err)
	}

	d.stream = stream
	return d, nil
}

// Capture blocks until one full frame of mono samples is available.
func (d *PortAudioDevice) Capture(buf []int16) (int, error) {
	if len(buf) != len(d.in) {
		return 0, fmt.Errorf("capture buffer must hold %d samples, got %d", len(d.in), len(buf))
	}

	if err := d.stream.Read(); err != nil {
		// An overflow means the hardware dropped data while we were
		// busy; the frame content is unreliable, so report a zero read.
		if errors.Is(err, portaudio.InputOverflowed) {
			return 0, nil
		}
		return 0, fmt.Errorf("capture failed: %w", err)
	}

	copy(buf, d.in)
	return len(buf), nil
}

// Play blocks until the device has queued the stereo frame for output.
func (d *PortAudioDevice) Play(buf []int16) (int, error) {
	if len(buf) != len(d.out) {
		return 0, fmt.Errorf("playback buffer must hold %d samples, got %d", len(d.out), len(buf))
	}

	copy(d.out, buf)
	if err := d.stream.Write(); err != nil {
		// An underflow still plays the frame, just after a gap. Report
		// a full accept; the gap shows up in the latency timings.
		if errors.Is(err, portaudio.OutputUnderflowed) {
			return len(buf), nil
		}
		return 0, fmt.Errorf("playback failed: %w", err)
	}

	return len(buf), nil
}

// Close stops the stream and tears down PortAudio.
func (d *PortAudioDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var firstErr error
	if err := d.stream.Stop(); err != nil {
		firstErr = fmt.Errorf("failed to stop stream: %w", err)
	}
	if err := d.stream.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to terminate PortAudio: %w", err)
	}

	return firstErr
}
