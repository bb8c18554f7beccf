package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/edgeaudio/pdm-audio-pipeline/internal/device"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/sink"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func testConfig(frameLength int) Config {
	return Config{
		SampleRate:           48000,
		FrameLength:          frameLength,
		Gain:                 1.0,
		FixedDeviceLatencyMs: 1.5,
		ReportInterval:       time.Hour, // keep reports quiet in tests
	}
}

func newTestDriver(t *testing.T, cfg Config, dev device.Device, tap sink.Sink) *Driver {
	t.Helper()
	d, err := New(cfg, dev, tap, nil, testLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func TestIterationProducesStereoPlayback(t *testing.T) {
	dev := device.NewSynthetic([][]int16{{100, -200, 300, -400}})
	cfg := testConfig(4)
	cfg.Gain = 2.0
	d := newTestDriver(t, cfg, dev, nil)

	d.runIteration()

	played := dev.Played()
	if len(played) != 1 {
		t.Fatalf("Expected 1 playback frame, got %d", len(played))
	}

	frame := played[0]
	if len(frame) != 8 {
		t.Fatalf("Expected 8 stereo samples, got %d", len(frame))
	}

	expected := []int16{200, -400, 600, -800}
	for i, want := range expected {
		if frame[2*i] != want || frame[2*i+1] != want {
			t.Errorf("Sample %d: expected both channels %d, got left=%d right=%d",
				i, want, frame[2*i], frame[2*i+1])
		}
	}

	stats := d.Stats()
	if stats.FramesCaptured != 1 || stats.FramesProcessed != 1 {
		t.Errorf("Expected 1 captured and 1 processed, got %+v", stats)
	}
}

func TestZeroReadSkipsPlayback(t *testing.T) {
	// Empty script: every capture is a zero read
	dev := device.NewSynthetic(nil)
	d := newTestDriver(t, testConfig(4), dev, nil)

	d.runIteration()
	d.runIteration()

	if dev.PlayCalls() != 0 {
		t.Errorf("Expected no playback calls after zero reads, got %d", dev.PlayCalls())
	}

	stats := d.Stats()
	if stats.FramesDropped != 2 {
		t.Errorf("Expected 2 dropped frames, got %d", stats.FramesDropped)
	}
	if stats.FramesProcessed != 0 {
		t.Errorf("Expected 0 processed frames, got %d", stats.FramesProcessed)
	}
}

func TestShortReadSkipsThenRecovers(t *testing.T) {
	dev := device.NewSynthetic([][]int16{
		{1, 2}, // short read: frame length is 4
		{1, 2, 3, 4},
	})
	d := newTestDriver(t, testConfig(4), dev, nil)

	d.runIteration()
	if dev.PlayCalls() != 0 {
		t.Error("Expected short read to skip playback")
	}

	// Next natural capture call is the retry
	d.runIteration()
	if dev.PlayCalls() != 1 {
		t.Errorf("Expected recovery on the next iteration, got %d play calls", dev.PlayCalls())
	}

	stats := d.Stats()
	if stats.FramesDropped != 1 || stats.FramesProcessed != 1 {
		t.Errorf("Expected 1 dropped and 1 processed, got %+v", stats)
	}
}

func TestCaptureErrorDoesNotCrash(t *testing.T) {
	dev := device.NewSynthetic([][]int16{{1, 2, 3, 4}})
	dev.FailNextCapture(errors.New("device fault"))
	d := newTestDriver(t, testConfig(4), dev, nil)

	d.runIteration() // error iteration
	d.runIteration() // recovery

	stats := d.Stats()
	if stats.FramesDropped != 1 {
		t.Errorf("Expected 1 dropped frame, got %d", stats.FramesDropped)
	}
	if stats.FramesProcessed != 1 {
		t.Errorf("Expected 1 processed frame after recovery, got %d", stats.FramesProcessed)
	}
}

func TestShortAcceptIsNotFatal(t *testing.T) {
	dev := device.NewSynthetic([][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}})
	dev.SetPlayAccept(3)
	d := newTestDriver(t, testConfig(4), dev, nil)

	d.runIteration()
	d.runIteration()

	stats := d.Stats()
	if stats.ShortAccepts != 2 {
		t.Errorf("Expected 2 short accepts, got %d", stats.ShortAccepts)
	}
	if stats.FramesProcessed != 2 {
		t.Errorf("Expected short accepts not to drop frames, got %d processed", stats.FramesProcessed)
	}
}

func TestPlaybackErrorIsCountedSeparately(t *testing.T) {
	dev := device.NewSynthetic([][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}})
	dev.FailNextPlay(errors.New("device busy"))
	d := newTestDriver(t, testConfig(4), dev, nil)

	d.runIteration() // refused submission
	d.runIteration() // recovery

	stats := d.Stats()
	if stats.PlaybackErrors != 1 {
		t.Errorf("Expected 1 playback error, got %d", stats.PlaybackErrors)
	}
	// The refused frame was still captured and transformed; only the
	// playback error counter separates it from a clean frame.
	if stats.FramesProcessed != 2 {
		t.Errorf("Expected 2 processed frames, got %d", stats.FramesProcessed)
	}
	if stats.FramesDropped != 0 {
		t.Errorf("Expected no capture drops, got %d", stats.FramesDropped)
	}
	if stats.ShortAccepts != 0 {
		t.Errorf("Expected a refused submission not to count as a short accept, got %d", stats.ShortAccepts)
	}
}

func TestTapReceivesPlaybackFrames(t *testing.T) {
	dev := device.NewSynthetic([][]int16{{1, -1}})
	var tapped bytes.Buffer
	d := newTestDriver(t, testConfig(2), dev, sink.NewWriterSink(&tapped))

	d.runIteration()

	// 2 mono samples -> 4 stereo samples -> 8 bytes
	if tapped.Len() != 8 {
		t.Errorf("Expected 8 tapped bytes, got %d", tapped.Len())
	}
}

type failingSink struct{}

func (failingSink) Write([]int16) error { return errors.New("sink down") }
func (failingSink) Close() error        { return nil }

func TestTapFailureIsNotFatal(t *testing.T) {
	dev := device.NewSynthetic([][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}})
	d := newTestDriver(t, testConfig(4), dev, failingSink{})

	d.runIteration()
	d.runIteration()

	stats := d.Stats()
	if stats.SinkErrors != 2 {
		t.Errorf("Expected 2 sink errors, got %d", stats.SinkErrors)
	}
	if stats.FramesProcessed != 2 {
		t.Errorf("Expected sink failures not to drop audio, got %d processed", stats.FramesProcessed)
	}
	if dev.PlayCalls() != 2 {
		t.Errorf("Expected playback unaffected by sink failures, got %d calls", dev.PlayCalls())
	}
}

func TestBuffersAreReusedAcrossIterations(t *testing.T) {
	dev := device.NewSynthetic([][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}})
	d := newTestDriver(t, testConfig(4), dev, nil)

	captureBefore := &d.capture[0]
	playbackBefore := &d.playback[0]

	d.runIteration()
	d.runIteration()

	if &d.capture[0] != captureBefore || &d.playback[0] != playbackBefore {
		t.Error("Expected capture and playback buffers to be reused, not reallocated")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	dev := device.NewSynthetic(nil)
	d := newTestDriver(t, testConfig(4), dev, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestOrderingCaptureBeforePlayback(t *testing.T) {
	dev := device.NewSynthetic([][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}})
	d := newTestDriver(t, testConfig(4), dev, nil)

	for i := 0; i < 3; i++ {
		d.runIteration()
	}

	played := dev.Played()
	if len(played) != 3 {
		t.Fatalf("Expected 3 playback frames, got %d", len(played))
	}

	// Frame k's playback must carry frame k's samples: no reordering.
	firsts := []int16{1, 5, 9}
	for i, frame := range played {
		if frame[0] != firsts[i] {
			t.Errorf("Frame %d out of order: expected leading sample %d, got %d", i, firsts[i], frame[0])
		}
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	dev := device.NewSynthetic(nil)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"zero frame length", func(c *Config) { c.FrameLength = 0 }},
		{"negative device latency", func(c *Config) { c.FixedDeviceLatencyMs = -1 }},
		{"zero report interval", func(c *Config) { c.ReportInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(4)
			tt.mutate(&cfg)
			if _, err := New(cfg, dev, nil, nil, testLogger()); err == nil {
				t.Error("Expected config validation error")
			}
		})
	}

	if _, err := New(testConfig(4), nil, nil, nil, testLogger()); err == nil {
		t.Error("Expected error for nil device")
	}
}

func TestNegativeGainAccepted(t *testing.T) {
	cfg := testConfig(2)
	cfg.Gain = -1.0
	dev := device.NewSynthetic([][]int16{{1000, -2000}})
	d := newTestDriver(t, cfg, dev, nil)

	d.runIteration()

	played := dev.Played()
	if len(played) != 1 {
		t.Fatalf("Expected 1 playback frame, got %d", len(played))
	}
	if played[0][0] != -1000 || played[0][2] != 2000 {
		t.Errorf("Expected phase-inverted output, got %v", played[0])
	}
}
