package device

import "fmt"

// Config holds the stream parameters a duplex device is opened with.
// The pipeline core depends on SampleRate and FrameLength; channel
// layout is fixed at mono capture, stereo playback.
type Config struct {
	SampleRate       int
	FrameLength      int // samples per capture frame
	CaptureChannels  int
	PlaybackChannels int
}

// DefaultConfig returns the stream parameters matching the PDM
// microphone source: 48 kHz, 256-sample frames, mono in, stereo out.
func DefaultConfig() Config {
	return Config{
		SampleRate:       48000,
		FrameLength:      256,
		CaptureChannels:  1,
		PlaybackChannels: 2,
	}
}

// Validate checks that the stream parameters are usable.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.FrameLength <= 0 {
		return fmt.Errorf("frame length must be positive, got %d", c.FrameLength)
	}
	if c.CaptureChannels != 1 {
		return fmt.Errorf("capture must be mono, got %d channels", c.CaptureChannels)
	}
	if c.PlaybackChannels != 2 {
		return fmt.Errorf("playback must be stereo, got %d channels", c.PlaybackChannels)
	}
	return nil
}

// Device is the duplex audio capability the pipeline core consumes.
// Both calls block on the underlying hardware transfer; neither takes
// a timeout. A stalled device stalls the pipeline with it.
type Device interface {
	// Capture blocks until len(buf) mono samples are available or the
	// device reports an error, and returns the number of samples filled.
	Capture(buf []int16) (int, error)

	// Play blocks until the device has queued buf for output and
	// returns the number of samples accepted. A short accept is not an
	// error.
	Play(buf []int16) (int, error)

	// Close releases the device.
	Close() error
}
